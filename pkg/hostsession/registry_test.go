package hostsession

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTakeReturnsEverythingForHost(t *testing.T) {
	r := NewRegistry()
	r.Track("host_a", Entry{KindSession, "ses_2"})
	r.Track("host_a", Entry{KindBrainstorm, "ses_9"})
	r.Track("host_a", Entry{KindSession, "ses_1"})
	r.Track("host_b", Entry{KindSession, "ses_3"})

	got := r.Take("host_a")
	assert.Equal(t, []Entry{
		{KindBrainstorm, "ses_9"},
		{KindSession, "ses_1"},
		{KindSession, "ses_2"},
	}, got)

	assert.Empty(t, r.Take("host_a"))
	assert.Equal(t, 1, r.Len())
}

func TestUntrackAndEmptyHost(t *testing.T) {
	r := NewRegistry()
	r.Track("", Entry{KindSession, "ses_1"})
	assert.Equal(t, 0, r.Len())

	e := Entry{KindSession, "ses_1"}
	r.Track("host_a", e)
	host, ok := r.HostOf(e)
	assert.True(t, ok)
	assert.Equal(t, "host_a", host)

	r.Untrack(e)
	r.Untrack(e)
	_, ok = r.HostOf(e)
	assert.False(t, ok)
	assert.Empty(t, r.Take("host_a"))
}

func TestRetrackMovesEntry(t *testing.T) {
	r := NewRegistry()
	e := Entry{KindBrainstorm, "ses_1"}
	r.Track("host_a", e)
	r.Track("host_b", e)

	assert.Empty(t, r.Take("host_a"))
	assert.Equal(t, []Entry{e}, r.Take("host_b"))
}
