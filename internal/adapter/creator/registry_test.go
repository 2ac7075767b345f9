package creator

import (
	"context"
	"testing"

	"github.com/cwygoda/feedhandler/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCreator struct {
	name    string
	matcher func(string) bool
	calls   int
}

func (m *mockCreator) Name() string              { return m.name }
func (m *mockCreator) Match(source string) bool { return m.matcher(source) }
func (m *mockCreator) Create(ctx context.Context, doc domain.Doc) (domain.Resource, error) {
	m.calls++
	return domain.Resource{APIID: doc.APIID, Location: m.name}, nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	r.Register(&mockCreator{name: "c1", matcher: func(string) bool { return false }})
	r.Register(&mockCreator{name: "c2", matcher: func(string) bool { return false }})

	assert.Len(t, r.Creators(), 2)
}

func TestRegistry_Match(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockCreator{name: "crm", matcher: func(s string) bool { return s == "crm" }})
	r.Register(&mockCreator{name: "generic", matcher: func(string) bool { return true }})

	tests := []struct {
		source   string
		wantName string
	}{
		{"crm", "crm"},
		{"erp", "generic"},
		{"", "generic"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			c := r.Match(tt.source)
			require.NotNil(t, c)
			assert.Equal(t, tt.wantName, c.Name())
		})
	}
}

func TestRegistry_Create(t *testing.T) {
	crm := &mockCreator{name: "crm", matcher: func(s string) bool { return s == "crm" }}
	r := NewRegistry()
	r.Register(crm)

	res, err := r.Create(context.Background(), domain.Doc{APIID: 4, Source: "crm"})
	require.NoError(t, err)
	assert.Equal(t, "crm", res.Location)
	assert.Equal(t, 1, crm.calls)

	_, err = r.Create(context.Background(), domain.Doc{APIID: 5, Source: "erp"})
	assert.ErrorIs(t, err, domain.ErrNoCreator)
	assert.Equal(t, domain.KindUnclassified, domain.KindOf(err))
	assert.Equal(t, 1, crm.calls)
}
