package address

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/storefront/checkout/internal/domain/address"
	"github.com/storefront/checkout/internal/domain/identity"
	"github.com/storefront/checkout/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockBackend is a mock implementation of Backend
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) ListAddresses(ctx context.Context, token string) ([]address.Address, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]address.Address), args.Error(1)
}

func (m *MockBackend) AddAddress(ctx context.Context, token string, fields address.Fields) (address.Address, error) {
	args := m.Called(ctx, token, fields)
	return args.Get(0).(address.Address), args.Error(1)
}

func (m *MockBackend) UpdateAddress(ctx context.Context, token, id string, fields address.Fields) error {
	args := m.Called(ctx, token, id, fields)
	return args.Error(0)
}

func (m *MockBackend) DeleteAddress(ctx context.Context, token, id string) error {
	args := m.Called(ctx, token, id)
	return args.Error(0)
}

// MockDirectory is a mock implementation of Directory
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) Provinces(ctx context.Context) ([]address.Region, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]address.Region), args.Error(1)
}

func (m *MockDirectory) Districts(ctx context.Context, provinceCode string) ([]address.Region, error) {
	args := m.Called(ctx, provinceCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]address.Region), args.Error(1)
}

func (m *MockDirectory) Wards(ctx context.Context, districtCode string) ([]address.Region, error) {
	args := m.Called(ctx, districtCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]address.Region), args.Error(1)
}

var (
	bob = &identity.User{Token: "tok-bob", Subject: "bob", Phone: "0911222333"}

	provinces = []address.Region{{Code: "1", Name: "Ha Noi"}, {Code: "79", Name: "Ho Chi Minh"}}
	districts = []address.Region{{Code: "001", Name: "Ba Dinh"}, {Code: "002", Name: "Hoan Kiem"}}
	wards     = []address.Region{{Code: "00001", Name: "Phuc Xa"}, {Code: "00004", Name: "Truc Bach"}}
)

func saved(id string) address.Address {
	return address.Address{ID: id, Fields: address.Fields{
		Province:      "Ha Noi",
		District:      "Ba Dinh",
		Ward:          "Truc Bach",
		Street:        "Street " + id,
		ReceiverName:  "Bob",
		ReceiverPhone: "0911222333",
	}}
}

func newBook(t *testing.T, list []address.Address) (*Book, *MockBackend, *MockDirectory) {
	t.Helper()
	backend := new(MockBackend)
	directory := new(MockDirectory)
	backend.On("ListAddresses", mock.Anything, "tok-bob").Return(list, nil).Once()
	b := NewBook(backend, directory, zap.NewNop())
	require.NoError(t, b.Hydrate(context.Background(), bob))
	return b, backend, directory
}

func TestBook_ListAddresses(t *testing.T) {
	t.Run("absent user yields empty list", func(t *testing.T) {
		backend := new(MockBackend)
		b := NewBook(backend, new(MockDirectory), nil)

		list, err := b.ListAddresses(context.Background(), nil)

		require.NoError(t, err)
		assert.Empty(t, list)
		backend.AssertNotCalled(t, "ListAddresses", mock.Anything, mock.Anything)
	})

	t.Run("keeps server order", func(t *testing.T) {
		b, backend, _ := newBook(t, []address.Address{saved("b"), saved("a")})
		backend.On("ListAddresses", mock.Anything, "tok-bob").Return([]address.Address{saved("b"), saved("a")}, nil).Once()

		list, err := b.ListAddresses(context.Background(), bob)

		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "b", list[0].ID)
	})

	t.Run("remote failure leaves list unchanged", func(t *testing.T) {
		b, backend, _ := newBook(t, []address.Address{saved("a")})
		backend.On("ListAddresses", mock.Anything, "tok-bob").
			Return(nil, shared.NewRemoteError("listAddresses", 503, "", nil)).Once()

		_, err := b.ListAddresses(context.Background(), bob)

		var re *shared.RemoteError
		require.True(t, errors.As(err, &re))
		assert.Len(t, b.Addresses(), 1)
	})

	t.Run("hydrate with no user clears everything", func(t *testing.T) {
		b, _, _ := newBook(t, []address.Address{saved("a"), saved("b")})
		require.NoError(t, b.Hydrate(context.Background(), nil))
		assert.Empty(t, b.Addresses())
	})
}

// slowBackend answers ListAddresses only after release is closed
type slowBackend struct {
	MockBackend
	started chan struct{}
	release chan struct{}
}

func (s *slowBackend) ListAddresses(ctx context.Context, token string) ([]address.Address, error) {
	close(s.started)
	<-s.release
	return []address.Address{saved("late")}, nil
}

func TestBook_StaleListIsDiscarded(t *testing.T) {
	backend := &slowBackend{started: make(chan struct{}), release: make(chan struct{})}
	b := NewBook(backend, new(MockDirectory), nil)

	done := make(chan error, 1)
	go func() { done <- b.Hydrate(context.Background(), bob) }()
	<-backend.started

	b.Reset()
	close(backend.release)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("hydrate did not return")
	}
	assert.Empty(t, b.Addresses())
}

func TestBook_HydrateWithCancelledContext(t *testing.T) {
	backend := new(MockBackend)
	b := NewBook(backend, new(MockDirectory), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Hydrate(ctx, bob)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, b.Addresses())
	backend.AssertNotCalled(t, "ListAddresses", mock.Anything, mock.Anything)
	assert.ErrorIs(t, b.BeginNew(context.Background()), shared.ErrUnauthenticated)
}

func TestBook_AddAddress(t *testing.T) {
	t.Run("missing fields fail before remote call", func(t *testing.T) {
		b, backend, _ := newBook(t, nil)

		_, err := b.AddAddress(context.Background(), address.Fields{Street: "x"})

		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrMissingFields)
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, []string{"province", "district", "ward", "receiverName", "receiverPhone"}, de.Fields)
		backend.AssertNotCalled(t, "AddAddress", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("saves then re-fetches", func(t *testing.T) {
		b, backend, _ := newBook(t, []address.Address{saved("a")})
		fields := saved("n").Fields
		backend.On("AddAddress", mock.Anything, "tok-bob", fields).Return(address.Address{}, nil).Once()
		backend.On("ListAddresses", mock.Anything, "tok-bob").
			Return([]address.Address{saved("a"), saved("n")}, nil).Once()

		got, err := b.AddAddress(context.Background(), fields)

		require.NoError(t, err)
		assert.Equal(t, "n", got.ID)
		assert.Len(t, b.Addresses(), 2)
		backend.AssertExpectations(t)
	})

	t.Run("requires a signed-in user", func(t *testing.T) {
		b := NewBook(new(MockBackend), new(MockDirectory), nil)
		_, err := b.AddAddress(context.Background(), saved("x").Fields)
		assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	})
}

func TestBook_UpdateAddress(t *testing.T) {
	b, backend, _ := newBook(t, []address.Address{saved("a")})
	fields := saved("a").Fields
	fields.Street = "New street"
	updated := address.Address{ID: "a", Fields: fields}
	backend.On("UpdateAddress", mock.Anything, "tok-bob", "a", fields).Return(nil).Once()
	backend.On("ListAddresses", mock.Anything, "tok-bob").Return([]address.Address{updated}, nil).Once()

	got, err := b.UpdateAddress(context.Background(), "a", fields)

	require.NoError(t, err)
	assert.Equal(t, updated, got)

	_, err = b.UpdateAddress(context.Background(), "missing", fields)
	assert.ErrorIs(t, err, shared.ErrUnknownAddress)
}

func TestBook_DeleteAddress(t *testing.T) {
	b, backend, _ := newBook(t, []address.Address{saved("a"), saved("b"), saved("c")})
	backend.On("DeleteAddress", mock.Anything, "tok-bob", "a").Return(nil).Once()
	backend.On("ListAddresses", mock.Anything, "tok-bob").Return([]address.Address{saved("b"), saved("c")}, nil).Once()

	require.NoError(t, b.DeleteAddress(context.Background(), "a"))

	assert.Len(t, b.Addresses(), 2)
	_, ok := b.Find("a")
	assert.False(t, ok)

	t.Run("failed delete leaves list unchanged", func(t *testing.T) {
		backend.On("DeleteAddress", mock.Anything, "tok-bob", "b").
			Return(shared.NewRemoteError("deleteAddress", 500, "nope", nil)).Once()
		err := b.DeleteAddress(context.Background(), "b")
		require.Error(t, err)
		assert.Len(t, b.Addresses(), 2)
	})
}

func TestBook_RegionLookupsRequireParent(t *testing.T) {
	b, _, directory := newBook(t, nil)

	_, err := b.ResolveDistricts(context.Background(), "1")
	assert.ErrorIs(t, err, shared.ErrInvalidSelectionOrder)

	_, err = b.ResolveWards(context.Background(), "001")
	assert.ErrorIs(t, err, shared.ErrInvalidSelectionOrder)

	directory.On("Provinces", mock.Anything).Return(provinces, nil).Once()
	require.NoError(t, b.BeginNew(context.Background()))

	_, err = b.ResolveDistricts(context.Background(), "79")
	assert.ErrorIs(t, err, shared.ErrInvalidSelectionOrder)
	directory.AssertNotCalled(t, "Districts", mock.Anything, mock.Anything)
	directory.AssertNotCalled(t, "Wards", mock.Anything, mock.Anything)
}

func TestBook_EditorNewAddressFlow(t *testing.T) {
	b, backend, directory := newBook(t, nil)
	ctx := context.Background()
	directory.On("Provinces", mock.Anything).Return(provinces, nil)
	directory.On("Districts", mock.Anything, "1").Return(districts, nil)
	directory.On("Wards", mock.Anything, "001").Return(wards, nil)

	require.NoError(t, b.BeginNew(ctx))
	view := b.Editor()
	assert.Equal(t, address.ModeEditingNew, view.Mode)
	assert.Equal(t, "0911222333", view.Draft.ReceiverPhone)
	assert.Equal(t, provinces, view.Options[address.LevelProvince])

	require.NoError(t, b.SelectProvince(ctx, "1"))
	require.NoError(t, b.SelectDistrict(ctx, "001"))
	require.NoError(t, b.SelectWard("00004"))
	require.NoError(t, b.SetStreet("5 Hang Bai"))
	require.NoError(t, b.SetReceiverName("Bob"))

	view = b.Editor()
	assert.Equal(t, wards, view.Options[address.LevelWard])
	assert.Equal(t, "Truc Bach", view.Draft.Ward)

	t.Run("reselecting province clears lower levels", func(t *testing.T) {
		directory.On("Districts", mock.Anything, "79").Return([]address.Region{{Code: "760", Name: "Quan 1"}}, nil).Once()
		require.NoError(t, b.SelectProvince(ctx, "79"))
		v := b.Editor()
		assert.Nil(t, v.Selected[address.LevelDistrict])
		assert.Nil(t, v.Selected[address.LevelWard])
		assert.Empty(t, v.Options[address.LevelWard])
		assert.Len(t, v.Options[address.LevelDistrict], 1)

		require.NoError(t, b.SelectProvince(ctx, "1"))
		require.NoError(t, b.SelectDistrict(ctx, "001"))
		require.NoError(t, b.SelectWard("00004"))
	})

	t.Run("failed save keeps editor open", func(t *testing.T) {
		draft := b.Editor().Draft
		backend.On("AddAddress", mock.Anything, "tok-bob", draft).
			Return(address.Address{}, shared.NewRemoteError("addAddress", 500, "", nil)).Once()

		_, err := b.Save(ctx)

		require.Error(t, err)
		assert.Equal(t, address.ModeEditingNew, b.Editor().Mode)
		assert.Equal(t, draft, b.Editor().Draft)
	})

	t.Run("successful save closes editor", func(t *testing.T) {
		draft := b.Editor().Draft
		created := address.Address{ID: "new", Fields: draft}
		backend.On("AddAddress", mock.Anything, "tok-bob", draft).Return(created, nil).Once()
		backend.On("ListAddresses", mock.Anything, "tok-bob").Return([]address.Address{created}, nil).Once()

		got, err := b.Save(ctx)

		require.NoError(t, err)
		assert.Equal(t, created, got)
		assert.Equal(t, address.ModeIdle, b.Editor().Mode)
	})
}

func TestBook_BeginEditPreResolvesCascade(t *testing.T) {
	b, _, directory := newBook(t, []address.Address{saved("a")})
	directory.On("Provinces", mock.Anything).Return(provinces, nil)
	directory.On("Districts", mock.Anything, "1").Return(districts, nil)
	directory.On("Wards", mock.Anything, "001").Return(wards, nil)

	require.NoError(t, b.BeginEdit(context.Background(), "a"))

	view := b.Editor()
	assert.Equal(t, address.ModeEditingExisting, view.Mode)
	assert.Equal(t, "a", view.TargetID)
	assert.Equal(t, saved("a").Fields, view.Draft)
	require.NotNil(t, view.Selected[address.LevelWard])
	assert.Equal(t, "00004", view.Selected[address.LevelWard].Code)
	assert.Equal(t, districts, view.Options[address.LevelDistrict])

	require.NoError(t, b.SetStreet("changed"))
	b.Cancel()
	assert.Equal(t, saved("a").Fields, b.Editor().Draft)
	assert.Equal(t, address.ModeIdle, b.Editor().Mode)
}

func TestBook_BeginEditUnmatchedNamesStay(t *testing.T) {
	a := saved("a")
	a.Province = "Atlantis"
	b, _, directory := newBook(t, []address.Address{a})
	directory.On("Provinces", mock.Anything).Return(provinces, nil)

	require.NoError(t, b.BeginEdit(context.Background(), "a"))

	view := b.Editor()
	require.NotNil(t, view.Selected[address.LevelProvince])
	assert.Equal(t, "Atlantis", view.Selected[address.LevelProvince].Name)
	assert.Empty(t, view.Selected[address.LevelProvince].Code)
	assert.Equal(t, a.Fields, view.Draft)
	directory.AssertNotCalled(t, "Districts", mock.Anything, mock.Anything)
}
