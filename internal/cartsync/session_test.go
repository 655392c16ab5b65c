package cartsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/01moynul/refuel-storefront/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testDelay = 15 * time.Millisecond

// fakeRemote is a single account's server state shared by any number of sessions.
type fakeRemote struct {
	mu         sync.Mutex
	cart       models.Cart
	wishlist   models.Wishlist
	fetches    int
	cartPuts   []models.Cart
	wishPuts   []models.Wishlist
	tokens     []string
	fetchErr   error
	replaceErr error
}

func (f *fakeRemote) FetchCart(_ context.Context, token string) (models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	f.tokens = append(f.tokens, token)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.cart.Clone(), nil
}

func (f *fakeRemote) FetchWishlist(_ context.Context, token string) (models.Wishlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.wishlist.Clone(), nil
}

func (f *fakeRemote) ReplaceCart(_ context.Context, token string, cart models.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.cart = cart.Clone()
	f.cartPuts = append(f.cartPuts, cart.Clone())
	return nil
}

func (f *fakeRemote) ReplaceWishlist(_ context.Context, _ string, wishlist models.Wishlist) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.wishlist = wishlist.Clone()
	f.wishPuts = append(f.wishPuts, wishlist.Clone())
	return nil
}

func (f *fakeRemote) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cartPuts) + len(f.wishPuts)
}

func (f *fakeRemote) serverCart() models.Cart {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cart.Clone()
}

func newSession(t *testing.T, remote Remote) *Session {
	t.Helper()
	s := NewSession(remote, Options{Delay: testDelay})
	t.Cleanup(s.Close)
	return s
}

func TestLoginLoadsWithoutWritingBack(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	remote := &fakeRemote{
		cart:     models.Cart{{ProductID: a, Quantity: 2}},
		wishlist: models.Wishlist{{ProductID: b}},
	}
	s := newSession(t, remote)

	require.NoError(t, s.Login(context.Background(), "tok", false))

	assert.Equal(t, models.Cart{{ProductID: a, Quantity: 2}}, s.Cart())
	assert.True(t, s.InWishlist(b))
	assert.Equal(t, 2, s.CartCount())
	assert.Equal(t, StateLoaded, s.State(ListCart))
	assert.Equal(t, StateLoaded, s.State(ListWishlist))
	assert.Never(t, func() bool { return remote.writes() > 0 }, 5*testDelay, testDelay)
}

func TestBurstOfChangesIsOneWrite(t *testing.T) {
	remote := &fakeRemote{}
	s := newSession(t, remote)
	require.NoError(t, s.Login(context.Background(), "tok", false))

	id := primitive.NewObjectID()
	s.AddToCart(id, 1)
	s.AddToCart(id, 1)
	s.AddToCart(id, 3)
	s.DecreaseQuantity(id)
	assert.Equal(t, StateDirty, s.State(ListCart))

	require.Eventually(t, func() bool { return remote.writes() == 1 }, time.Second, testDelay)
	assert.Never(t, func() bool { return remote.writes() > 1 }, 4*testDelay, testDelay)

	assert.Equal(t, models.Cart{{ProductID: id, Quantity: 4}}, remote.serverCart())
	assert.Equal(t, StateSynced, s.State(ListCart))
	assert.Equal(t, StateLoaded, s.State(ListWishlist))
	assert.Contains(t, remote.tokens, "tok")
}

func TestCartMutations(t *testing.T) {
	remote := &fakeRemote{}
	s := newSession(t, remote)
	require.NoError(t, s.Login(context.Background(), "tok", false))

	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	s.AddToCart(a, 0)
	s.AddToCart(b, 2)
	assert.Equal(t, models.Cart{{ProductID: a, Quantity: 1}, {ProductID: b, Quantity: 2}}, s.Cart())

	s.DecreaseQuantity(a)
	assert.Equal(t, models.Cart{{ProductID: b, Quantity: 2}}, s.Cart())

	s.RemoveFromCart(b)
	assert.Empty(t, s.Cart())

	s.AddToCart(a, 5)
	s.ClearCart()
	assert.Empty(t, s.Cart())

	s.Flush()
	assert.Equal(t, 1, remote.writes())
	assert.Empty(t, remote.serverCart())
}

func TestCartSnapshotIsACopy(t *testing.T) {
	s := newSession(t, &fakeRemote{})
	require.NoError(t, s.Login(context.Background(), "tok", false))

	id := primitive.NewObjectID()
	s.AddToCart(id, 1)
	snap := s.Cart()
	snap[0].Quantity = 99
	assert.Equal(t, 1, s.Cart()[0].Quantity)
}

func TestWishlistMutations(t *testing.T) {
	remote := &fakeRemote{}
	s := newSession(t, remote)
	require.NoError(t, s.Login(context.Background(), "tok", false))

	id := primitive.NewObjectID()
	assert.True(t, s.AddToWishlist(id))
	s.Flush()
	require.Equal(t, 1, remote.writes())

	assert.False(t, s.AddToWishlist(id))
	s.Flush()
	assert.Equal(t, 1, remote.writes(), "duplicate add should not write")

	s.ToggleWishlist(id)
	assert.False(t, s.InWishlist(id))
	s.ToggleWishlist(id)
	assert.True(t, s.InWishlist(id))
	s.RemoveFromWishlist(id)
	s.Flush()

	assert.Equal(t, 2, remote.writes())
	assert.Empty(t, s.Wishlist())
}

func TestAdminSessionNeverSyncs(t *testing.T) {
	remote := &fakeRemote{cart: models.Cart{{ProductID: primitive.NewObjectID(), Quantity: 1}}}
	s := newSession(t, remote)

	require.NoError(t, s.Login(context.Background(), "admin-tok", true))
	assert.Zero(t, remote.fetches)
	assert.Empty(t, s.Cart())

	s.AddToCart(primitive.NewObjectID(), 1)
	s.AddToWishlist(primitive.NewObjectID())
	assert.Len(t, s.Cart(), 1)
	assert.Never(t, func() bool { return remote.writes() > 0 }, 5*testDelay, testDelay)
}

func TestLogoutCancelsPendingWrite(t *testing.T) {
	remote := &fakeRemote{}
	s := newSession(t, remote)
	require.NoError(t, s.Login(context.Background(), "tok", false))

	s.AddToCart(primitive.NewObjectID(), 1)
	s.AddToWishlist(primitive.NewObjectID())
	s.Logout()

	assert.Empty(t, s.Cart())
	assert.Empty(t, s.Wishlist())
	assert.Equal(t, StateSignedOut, s.State(ListCart))
	assert.Never(t, func() bool { return remote.writes() > 0 }, 5*testDelay, testDelay)

	// Signed-out changes stay local.
	s.AddToCart(primitive.NewObjectID(), 1)
	s.Flush()
	assert.Zero(t, remote.writes())
	assert.Equal(t, StateSignedOut, s.State(ListCart))
}

func TestWriteFailureIsReported(t *testing.T) {
	remote := &fakeRemote{replaceErr: errors.New("boom")}

	var mu sync.Mutex
	var failed []List
	s := NewSession(remote, Options{Delay: testDelay, OnError: func(list List, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, list)
	}})
	t.Cleanup(s.Close)
	require.NoError(t, s.Login(context.Background(), "tok", false))

	s.AddToCart(primitive.NewObjectID(), 1)
	s.Flush()

	mu.Lock()
	assert.Equal(t, []List{ListCart}, failed)
	mu.Unlock()
	assert.Equal(t, StateDirty, s.State(ListCart))
	assert.Len(t, s.Cart(), 1)
}

func TestFailedLoginDoesNotOverwriteServer(t *testing.T) {
	existing := models.Cart{{ProductID: primitive.NewObjectID(), Quantity: 3}}
	remote := &fakeRemote{cart: existing, fetchErr: errors.New("offline")}
	s := newSession(t, remote)

	require.Error(t, s.Login(context.Background(), "tok", false))

	s.AddToCart(primitive.NewObjectID(), 1)
	s.Flush()
	assert.Zero(t, remote.writes())
	assert.Equal(t, existing, remote.serverCart())
}

func TestRelogin(t *testing.T) {
	id := primitive.NewObjectID()
	remote := &fakeRemote{}
	s := newSession(t, remote)
	require.NoError(t, s.Login(context.Background(), "tok", false))
	s.AddToCart(id, 2)
	s.Flush()

	s.Logout()
	require.NoError(t, s.Login(context.Background(), "tok2", false))
	assert.Equal(t, models.Cart{{ProductID: id, Quantity: 2}}, s.Cart())
	assert.Equal(t, StateLoaded, s.State(ListCart))
}

func TestTwoDevicesLastWriteWins(t *testing.T) {
	remote := &fakeRemote{}
	phone := newSession(t, remote)
	laptop := newSession(t, remote)
	require.NoError(t, phone.Login(context.Background(), "tok", false))
	require.NoError(t, laptop.Login(context.Background(), "tok", false))

	x, y := primitive.NewObjectID(), primitive.NewObjectID()
	phone.AddToCart(x, 1)
	laptop.AddToCart(y, 1)

	phone.Flush()
	laptop.Flush()

	assert.Equal(t, models.Cart{{ProductID: y, Quantity: 1}}, remote.serverCart())
	assert.Equal(t, models.Cart{{ProductID: x, Quantity: 1}}, phone.Cart())
}

// slowRemote holds the first ReplaceCart until release is closed.
type slowRemote struct {
	*fakeRemote
	entered chan struct{}
	release chan struct{}
	once    sync.Once

	gate      sync.Mutex
	active    int
	maxActive int
}

func newSlowRemote() *slowRemote {
	return &slowRemote{fakeRemote: &fakeRemote{}, entered: make(chan struct{}), release: make(chan struct{})}
}

func (r *slowRemote) ReplaceCart(ctx context.Context, token string, cart models.Cart) error {
	r.gate.Lock()
	r.active++
	if r.active > r.maxActive {
		r.maxActive = r.active
	}
	r.gate.Unlock()
	defer func() {
		r.gate.Lock()
		r.active--
		r.gate.Unlock()
	}()

	first := false
	r.once.Do(func() {
		first = true
		close(r.entered)
	})
	if first {
		<-r.release
	}
	return r.fakeRemote.ReplaceCart(ctx, token, cart)
}

func TestSlowWriteIsFollowedByLatestCart(t *testing.T) {
	remote := newSlowRemote()
	s := newSession(t, remote)
	require.NoError(t, s.Login(context.Background(), "tok", false))

	id := primitive.NewObjectID()
	s.AddToCart(id, 1)
	<-remote.entered

	// Returns at once since the first write is still on the wire.
	s.AddToCart(id, 1)
	s.Flush()
	assert.Equal(t, StateDirty, s.State(ListCart))
	assert.Zero(t, remote.writes())

	close(remote.release)

	want := models.Cart{{ProductID: id, Quantity: 2}}
	require.Eventually(t, func() bool { return s.State(ListCart) == StateSynced }, time.Second, testDelay)
	assert.Equal(t, want, remote.serverCart())

	remote.mu.Lock()
	assert.Equal(t, []models.Cart{{{ProductID: id, Quantity: 1}}, want}, remote.cartPuts)
	remote.mu.Unlock()
	remote.gate.Lock()
	assert.Equal(t, 1, remote.maxActive)
	remote.gate.Unlock()
}

// slowFetchRemote holds FetchCart until release is closed.
type slowFetchRemote struct {
	*fakeRemote
	entered chan struct{}
	release chan struct{}
}

func (r *slowFetchRemote) FetchCart(ctx context.Context, token string) (models.Cart, error) {
	close(r.entered)
	<-r.release
	return r.fakeRemote.FetchCart(ctx, token)
}

func TestChangesDuringLoginAreReplayedOntoServerLists(t *testing.T) {
	saved, fresh, liked := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	remote := &slowFetchRemote{
		fakeRemote: &fakeRemote{cart: models.Cart{{ProductID: saved, Quantity: 3}}},
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	s := newSession(t, remote)

	done := make(chan error, 1)
	go func() { done <- s.Login(context.Background(), "tok", false) }()
	<-remote.entered

	s.AddToCart(fresh, 1)
	assert.True(t, s.AddToWishlist(liked))
	assert.Equal(t, StateLoading, s.State(ListCart))
	s.Flush()
	assert.Zero(t, remote.writes())

	close(remote.release)
	require.NoError(t, <-done)

	want := models.Cart{{ProductID: saved, Quantity: 3}, {ProductID: fresh, Quantity: 1}}
	assert.Equal(t, want, s.Cart())
	assert.True(t, s.InWishlist(liked))

	require.Eventually(t, func() bool { return remote.writes() == 2 }, time.Second, testDelay)
	assert.Never(t, func() bool { return remote.writes() > 2 }, 4*testDelay, testDelay)
	assert.Equal(t, want, remote.serverCart())
	assert.Equal(t, StateSynced, s.State(ListCart))
	assert.Equal(t, StateSynced, s.State(ListWishlist))
}

func TestDebouncerReplacesPendingCall(t *testing.T) {
	d := NewDebouncer(testDelay)
	defer d.Stop()

	var mu sync.Mutex
	var got []int
	record := func(n int) func() {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, n)
		}
	}

	d.Schedule("k", record(1))
	d.Schedule("k", record(2))
	d.Schedule("other", record(3))
	assert.True(t, d.Pending("k"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, testDelay)

	mu.Lock()
	assert.ElementsMatch(t, []int{2, 3}, got)
	mu.Unlock()
	assert.False(t, d.Pending("k"))
}

func TestDebouncerCancelAndFlush(t *testing.T) {
	d := NewDebouncer(time.Hour)
	calls := 0

	d.Schedule("k", func() { calls++ })
	d.Cancel("k")
	d.Flush("k")
	assert.Zero(t, calls)

	d.Schedule("k", func() { calls++ })
	d.Flush("k")
	assert.Equal(t, 1, calls)
	assert.False(t, d.Pending("k"))

	d.Schedule("a", func() { calls++ })
	d.Schedule("b", func() { calls++ })
	d.Stop()
	assert.False(t, d.Pending("a"))
	assert.False(t, d.Pending("b"))
}
