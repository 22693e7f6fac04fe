package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaultErrorMessage(t *testing.T) {
	f := NewTypeMismatch("account", "revenue", "money", "string")
	assert.Equal(t,
		"TYPE_MISMATCH: account.revenue expects money but got string (actual=string, attribute=revenue, entity=account, expected=money)",
		f.Error())

	plain := New(UnsupportedRequest, "nope")
	assert.Equal(t, "UNSUPPORTED_REQUEST: nope", plain.Error())
}

func TestIsSeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("create account: %w", NewDuplicateID("account", "x"))

	assert.True(t, Is(err, DuplicateID))
	assert.False(t, Is(err, NotFound))
	assert.Equal(t, DuplicateID, CodeOf(err))

	f, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "x", f.Detail("id"))
}

func TestCodeOfNonFault(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
	assert.Equal(t, Code(""), CodeOf(nil))
	assert.False(t, Is(nil, NotFound))
}

func TestDomainFaultUnwraps(t *testing.T) {
	cause := errors.New("credit limit exceeded")
	f := NewDomain(cause)

	assert.Equal(t, DomainFault, f.Code)
	assert.ErrorIs(t, f, cause)
	assert.Equal(t, "DOMAIN_FAULT: credit limit exceeded", f.Error())
}

func TestInfiniteLoopDetails(t *testing.T) {
	f := NewInfiniteLoop(4, 3)
	assert.Equal(t, "4", f.Detail("depth"))
	assert.Equal(t, "3", f.Detail("max_depth"))
	assert.True(t, Is(f, InfiniteLoopGuard))
}
