// Package schema provides the closed-world registry of event payload schemas and the validator
// that checks raw JSON payloads against them.
//
// Every payload shape is compiled into the binary and registered once at startup, keyed by its
// discriminator (the event type string). Nothing is discovered at runtime:
//
//	registry := schema.MustNewTypeRegistry(
//		schema.Define[AccountCreatedV1]("control.account.created.v1", "accountId", "name"),
//		schema.Define[PaginationTest]("test.pagination.default"),
//	)
//
//	validator := schema.NewValidator(registry)
//	result := validator.Validate("control.account.created.v1", payloadJSON)
//	if !result.IsValid {
//		// result.Errors holds one message per violation
//	}
//
// Validation happens in two stages. The structural decode checks that the payload is a JSON object,
// that every decode-required property is present and that the values fit the Go shape. Only then the
// field constraints declared by the payload (see Checks) run in declaration order.
package schema
