package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const dsnKey = "outreach/postgres-dsn"

type mockSecretReader struct {
	mock.Mock
}

func (m *mockSecretReader) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func newChain(t *testing.T) (*Store, *mockSecretReader, *mockSecretReader) {
	t.Helper()

	primary := &mockSecretReader{}
	fallback := &mockSecretReader{}
	t.Cleanup(func() {
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	store, err := NewStore(primary, fallback)
	require.NoError(t, err)
	return store, primary, fallback
}

func TestStoreGetUsesPrimaryWhenItSucceeds(t *testing.T) {
	t.Parallel()

	store, primary, _ := newChain(t)
	primary.On("Get", mock.Anything, dsnKey).Return("from-pass", nil).Once()

	value, err := store.Get(context.Background(), dsnKey)
	require.NoError(t, err)
	assert.Equal(t, "from-pass", value)
}

func TestStoreGetFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.On("Get", mock.Anything, dsnKey).Return("", errors.New("pass unavailable")).Once()
	fallback.On("Get", mock.Anything, dsnKey).Return("from-file", nil).Once()

	value, err := store.Get(context.Background(), dsnKey)
	require.NoError(t, err)
	assert.Equal(t, "from-file", value)
}

func TestStoreGetReturnsCombinedErrorWhenBothBackendsFail(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.On("Get", mock.Anything, dsnKey).Return("", errors.New("pass failed")).Once()
	fallback.On("Get", mock.Anything, dsnKey).Return("", errors.New("file failed")).Once()

	_, err := store.Get(context.Background(), dsnKey)
	require.Error(t, err)
	assert.ErrorContains(t, err, "primary backend")
	assert.ErrorContains(t, err, "fallback backend")
	assert.ErrorContains(t, err, "pass failed")
	assert.ErrorContains(t, err, "file failed")
}

func TestStoreGetDoesNotFallbackOnCanceledContextError(t *testing.T) {
	t.Parallel()

	store, primary, _ := newChain(t)
	primary.On("Get", mock.Anything, dsnKey).Return("", context.Canceled).Once()

	_, err := store.Get(context.Background(), dsnKey)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewStoreRejectsNilBackends(t *testing.T) {
	t.Parallel()

	_, err := NewStore(nil, &mockSecretReader{})
	require.ErrorIs(t, err, errNilPrimaryStore)

	_, err = NewStore(&mockSecretReader{}, nil)
	require.ErrorIs(t, err, errNilFallbackStore)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	store, primary, _ := newChain(t)
	primary.On("Get", mock.Anything, dsnKey).Return("postgres://db/oq", nil).Once()

	literal, err := Resolve(context.Background(), store, "postgres://literal/oq")
	require.NoError(t, err)
	assert.Equal(t, "postgres://literal/oq", literal)

	resolved, err := Resolve(context.Background(), store, " secret:"+dsnKey)
	require.NoError(t, err)
	assert.Equal(t, "postgres://db/oq", resolved)

	_, err = Resolve(context.Background(), nil, "secret:"+dsnKey)
	assert.ErrorContains(t, err, "no secret store is configured")
}
