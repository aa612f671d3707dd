package chat

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func textMessage(body string) Message {
	return Message{
		ID:             uuid.New(),
		ConversationID: uuid.New(),
		SenderStaffID:  uuid.NullUUID{UUID: uuid.New(), Valid: true},
		Type:           MessageText,
		Body:           sql.NullString{String: body, Valid: true},
	}
}

func TestMessageValidate(t *testing.T) {
	assert.NoError(t, textMessage("hello").Validate())

	m := textMessage("hello")
	m.SenderCustomerID = uuid.NullUUID{UUID: uuid.New(), Valid: true}
	assert.ErrorIs(t, m.Validate(), ErrSenderRef)

	assert.ErrorIs(t, textMessage("").Validate(), ErrEmptyBody)
	assert.ErrorIs(t, textMessage("   \n ").Validate(), ErrEmptyBody)

	long := textMessage(strings.Repeat("x", MaxBodyLength+1))
	assert.ErrorIs(t, long.Validate(), ErrBodyTooLong)

	// Rune count, not byte count.
	arabic := textMessage(strings.Repeat("م", MaxBodyLength))
	assert.NoError(t, arabic.Validate())

	doc := textMessage("")
	doc.Type = MessageDocument
	assert.ErrorIs(t, doc.Validate(), ErrMissingMetadata)
	doc.Metadata = sql.NullString{String: `{"file":"a.pdf"}`, Valid: true}
	assert.NoError(t, doc.Validate())

	unknown := textMessage("x")
	unknown.Type = "VOICE"
	assert.ErrorIs(t, unknown.Validate(), ErrUnknownMessageType)
}

func TestConversationValidate(t *testing.T) {
	dm := Conversation{ID: uuid.New(), Type: TypeCustomerDM}
	assert.ErrorIs(t, dm.Validate(), ErrCustomerDMWithoutCustomer)
	dm.CustomerID = uuid.NullUUID{UUID: uuid.New(), Valid: true}
	assert.NoError(t, dm.Validate())

	group := Conversation{ID: uuid.New(), Type: TypeStaffGroup}
	assert.NoError(t, group.Validate())
	group.CustomerID = uuid.NullUUID{UUID: uuid.New(), Valid: true}
	assert.ErrorIs(t, group.Validate(), ErrCustomerOnStaffConversation)

	assert.ErrorIs(t, Conversation{Type: "HUDDLE"}.Validate(), ErrUnknownConversationType)
}

func TestParticipantValidate(t *testing.T) {
	p := Participant{ID: uuid.New(), ConversationID: uuid.New()}
	assert.ErrorIs(t, p.Validate(), ErrParticipantActorRef)

	p.StaffID = uuid.NullUUID{UUID: uuid.New(), Valid: true}
	assert.NoError(t, p.Validate())

	p.CustomerID = uuid.NullUUID{UUID: uuid.New(), Valid: true}
	assert.ErrorIs(t, p.Validate(), ErrParticipantActorRef)
}
