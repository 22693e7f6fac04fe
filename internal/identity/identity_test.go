package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEffectiveUser(t *testing.T) {
	user, other := uuid.New(), uuid.New()
	c := Caller{UserID: user}
	assert.Equal(t, user, c.EffectiveUser())

	imp := c.Impersonate(other)
	assert.Equal(t, other, imp.EffectiveUser())
	assert.Equal(t, other, imp.UserRef().ID)
	assert.Equal(t, user, imp.InitiatingUserRef().ID)
	assert.Equal(t, uuid.Nil, c.ImpersonatedUserID, "Impersonate does not mutate the receiver")
}

func TestStaticProvider(t *testing.T) {
	first := Caller{UserID: uuid.New()}
	p := NewStatic(first)
	assert.Equal(t, first, p.Caller())

	second := Caller{UserID: uuid.New(), BusinessUnitID: uuid.New()}
	p.Set(second)
	assert.Equal(t, second, p.Caller())
	assert.Equal(t, BusinessUnitEntity, p.Caller().BusinessUnitRef().LogicalName)
}
