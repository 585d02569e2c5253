package registry

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/janhoon/vizor/querier/model"
)

type stubAdapter struct {
	testErr error
}

func (s *stubAdapter) Query(ctx context.Context, q string, start, end time.Time,
	step time.Duration, limit int64) (*model.QueryResult, error) {
	return s.QueryWithSignal(ctx, q, "", start, end, step, limit)
}

func (s *stubAdapter) QueryWithSignal(ctx context.Context, q, sig string, start, end time.Time,
	step time.Duration, limit int64) (*model.QueryResult, error) {
	return &model.QueryResult{Status: "success", ResultType: model.ResultTypeMatrix}, nil
}

func (s *stubAdapter) TestConnection(ctx context.Context) error {
	return s.testErr
}

func TestRegistryFirstDescriptorWins(t *testing.T) {
	r := New([]model.DataSource{
		{Name: "a", Type: "stub", URL: "http://one"},
		{Name: "a", Type: "stub", URL: "http://two"},
		{Name: "b", Type: "stub", URL: "http://three"},
	})
	list := r.List()
	assert.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "http://one", list[0].URL)
	assert.Equal(t, "b", list[1].Name)
}

func TestRegistryGet(t *testing.T) {
	r := New([]model.DataSource{{Name: "a", Type: "stub"}})
	ds, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "a", ds.Name)
	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistryBuildsAdapterOnce(t *testing.T) {
	built := 0
	RegisterType("stub", func(ds model.DataSource) (model.Adapter, error) {
		built++
		return &stubAdapter{}, nil
	})
	r := New([]model.DataSource{{Name: "a", Type: "stub"}})

	a1, err := r.Adapter("a")
	assert.NoError(t, err)
	a2, err := r.Adapter("a")
	assert.NoError(t, err)
	assert.Same(t, a1, a2)
	assert.Equal(t, 1, built)
}

func TestRegistryAdapterNotFound(t *testing.T) {
	r := New(nil)
	_, err := r.Adapter("ghost")
	var nfe *model.NotFoundError
	assert.ErrorAs(t, err, &nfe)
	assert.Equal(t, "ghost", nfe.Name)
}

func TestRegistryUnknownType(t *testing.T) {
	r := New([]model.DataSource{{Name: "a", Type: "never-registered"}})
	_, err := r.Adapter("a")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no adapter registered")
}

func TestRegistryFactoryErrorNotCached(t *testing.T) {
	calls := 0
	RegisterType("flaky", func(ds model.DataSource) (model.Adapter, error) {
		calls++
		return nil, errors.New("bad config")
	})
	r := New([]model.DataSource{{Name: "a", Type: "flaky"}})
	_, err := r.Adapter("a")
	assert.Error(t, err)
	_, err = r.Adapter("a")
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestRegistryTypes(t *testing.T) {
	RegisterType("zz-stub", func(ds model.DataSource) (model.Adapter, error) {
		return &stubAdapter{}, nil
	})
	types := Types()
	assert.Contains(t, types, "zz-stub")
	// sorted output
	for i := 1; i < len(types); i++ {
		assert.LessOrEqual(t, types[i-1], types[i])
	}
}

func TestRegistryTestConnection(t *testing.T) {
	RegisterType("stub-down", func(ds model.DataSource) (model.Adapter, error) {
		return &stubAdapter{testErr: errors.New("unreachable")}, nil
	})
	r := New([]model.DataSource{{Name: "down", Type: "stub-down"}})
	err := r.TestConnection(context.Background(), "down")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}
