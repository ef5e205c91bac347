package fixtures

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/typed-eventstore-go/events"
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
)

const DefaultSource = "/fixtures"

// Generator builds events with fake payloads. It is not safe for concurrent use.
type Generator struct {
	faker     *gofakeit.Faker
	iTwinID   uuid.UUID
	accountID uuid.UUID
	source    string
	clock     time.Time
}

// NewGenerator creates a Generator whose output depends only on seed.
// All events share one iTwin and one account unless changed with ForITwin and ForAccount.
func NewGenerator(seed int64) *Generator {
	faker := gofakeit.New(seed)

	return &Generator{
		faker:     faker,
		iTwinID:   uuid.MustParse(faker.UUID()),
		accountID: uuid.MustParse(faker.UUID()),
		source:    DefaultSource,
		clock:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// ForITwin returns a copy of g producing events of iTwinID.
func (g Generator) ForITwin(iTwinID uuid.UUID) *Generator {
	g.iTwinID = iTwinID
	return &g
}

// ForAccount returns a copy of g producing events of accountID.
func (g Generator) ForAccount(accountID uuid.UUID) *Generator {
	g.accountID = accountID
	return &g
}

func (g *Generator) ITwinID() uuid.UUID {
	return g.iTwinID
}

func (g *Generator) AccountID() uuid.UUID {
	return g.accountID
}

// Payload returns a valid fake payload for eventType.
func (g *Generator) Payload(eventType string) any {
	switch eventType {
	case events.AccountCreatedV1EventType:
		return events.AccountCreatedV1{
			AccountID: g.accountID.String(),
			Name:      g.faker.Company(),
			Email:     g.faker.Email(),
			Region:    g.faker.RandomString([]string{"eu", "us", "apac"}),
		}

	case events.AccountDeletedV1EventType:
		return events.AccountDeletedV1{AccountID: g.accountID.String(), Reason: g.faker.Sentence(4)}

	case events.IModelCreatedV1EventType:
		return events.IModelCreatedV1{
			IModelID:    g.faker.UUID(),
			Name:        g.faker.AppName(),
			Description: g.faker.Sentence(8),
		}

	case events.ChangesetPushedV1EventType:
		return events.ChangesetPushedV1{
			IModelID:    g.faker.UUID(),
			ChangesetID: g.faker.LetterN(40),
			Index:       int64(g.faker.IntRange(1, 10000)),
			FileSize:    int64(g.faker.IntRange(0, 1<<30)),
		}

	case events.SynchronizationRunCompletedEventType:
		return events.SynchronizationRunCompletedV1{
			RunID:           g.faker.UUID(),
			ConnectionID:    g.faker.UUID(),
			State:           g.faker.RandomString([]string{"Completed", "Failed", "Canceled"}),
			DurationSeconds: int64(g.faker.IntRange(1, 3600)),
			Files:           []string{g.fileName(), g.fileName()},
		}

	case events.ConstraintsTestEventType:
		return events.ConstraintsTest{
			Name:  g.faker.Name(),
			Count: int64(g.faker.IntRange(1, 10)),
			Tags:  []string{g.faker.Word()},
		}

	default:
		return events.PaginationTest{Sequence: int64(g.faker.IntRange(0, 1_000_000))}
	}
}

// PayloadJSON returns Payload(eventType) encoded as JSON.
func (g *Generator) PayloadJSON(eventType string) []byte {
	raw, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(g.Payload(eventType))
	if err != nil {
		panic(fmt.Sprintf("fixtures: encoding %s payload: %v", eventType, err))
	}

	return raw
}

// Event returns one event of eventType with a fresh ID and a time one minute after the previous event.
func (g *Generator) Event(eventType string) eventstore.Event {
	g.clock = g.clock.Add(time.Minute)
	occurredAt := g.clock

	event, err := eventstore.BuildEvent(
		g.iTwinID,
		g.accountID,
		g.faker.UUID(),
		g.source,
		eventType,
		&occurredAt,
		g.PayloadJSON(eventType),
	)
	if err != nil {
		panic(fmt.Sprintf("fixtures: building %s event: %v", eventType, err))
	}

	return event
}

// Events returns count events of eventType in ascending ID order.
func (g *Generator) Events(eventType string, count int) eventstore.Events {
	result := make(eventstore.Events, 0, count)
	for range count {
		result = append(result, g.Event(eventType))
	}

	return result
}

// MixedEvents returns count events cycling through eventTypes, in ascending ID order.
func (g *Generator) MixedEvents(count int, eventTypes ...string) eventstore.Events {
	result := make(eventstore.Events, 0, count)
	for i := range count {
		result = append(result, g.Event(eventTypes[i%len(eventTypes)]))
	}

	return result
}

// WithoutTime returns a copy of event without business time.
func WithoutTime(event eventstore.Event) eventstore.Event {
	event.Time = nil
	return event
}

func (g *Generator) fileName() string {
	return g.faker.Word() + "." + g.faker.FileExtension()
}
