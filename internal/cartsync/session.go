// Package cartsync keeps a client-side cart and wishlist in step with the
// server. Every mutation is applied locally at once and the whole list is
// written back after a quiet period, so a burst of clicks costs one request.
//
// Two sessions for the same account overwrite each other: whichever write
// lands last wins.
package cartsync

import (
	"context"
	"sync"
	"time"

	"github.com/01moynul/refuel-storefront/internal/models"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultDelay = 500 * time.Millisecond
	writeTimeout = 10 * time.Second
)

// List names one of the two synced lists.
type List string

const (
	ListCart     List = "cart"
	ListWishlist List = "wishlist"
)

// State is the sync state of a single list.
type State int

const (
	// StateSignedOut means nothing is loaded and nothing is written.
	StateSignedOut State = iota
	// StateLoading means the login fetch is running. Changes are kept locally
	// and replayed onto the fetched list once it arrives.
	StateLoading
	// StateLoaded means the list matches what the server returned at login.
	StateLoaded
	// StateDirty means a local change is waiting to be written.
	StateDirty
	// StateSynced means the last local change was written successfully.
	StateSynced
)

type Options struct {
	Delay   time.Duration
	Logger  zerolog.Logger
	OnError func(list List, err error)
}

type cartOp func(models.Cart) models.Cart

type wishlistOp func(models.Wishlist) (models.Wishlist, bool)

// Session is one signed-in client's view of its cart and wishlist.
type Session struct {
	remote    Remote
	debouncer *Debouncer
	log       zerolog.Logger
	onError   func(List, error)

	mu       sync.Mutex
	token    string
	syncing  bool
	epoch    uint64
	cart     models.Cart
	wishlist models.Wishlist
	state    map[List]State
	version  map[List]uint64

	// changes made while the login fetch runs
	cartOps     []cartOp
	wishlistOps []wishlistOp

	// at most one write per list is on the wire; rerun asks it for one more round
	inflight map[List]bool
	rerun    map[List]bool
}

func NewSession(remote Remote, opts Options) *Session {
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Session{
		remote:    remote,
		debouncer: NewDebouncer(delay),
		log:       opts.Logger,
		onError:   opts.OnError,
		state:     map[List]State{ListCart: StateSignedOut, ListWishlist: StateSignedOut},
		version:   map[List]uint64{},
		inflight:  map[List]bool{},
		rerun:     map[List]bool{},
	}
}

// reset must be called with mu held.
func (s *Session) reset(state State) {
	s.epoch++
	s.cart = models.Cart{}
	s.wishlist = models.Wishlist{}
	s.cartOps = nil
	s.wishlistOps = nil
	s.state[ListCart] = state
	s.state[ListWishlist] = state
	s.rerun[ListCart] = false
	s.rerun[ListWishlist] = false
}

// Login loads both lists from the server. The loaded lists are not written
// back. Changes made while the fetch runs are applied on top of the fetched
// lists and then written once. Admin sessions keep lists locally and never
// talk to the server.
func (s *Session) Login(ctx context.Context, token string, isAdmin bool) error {
	s.debouncer.Stop()

	s.mu.Lock()
	if isAdmin {
		s.reset(StateLoaded)
	} else {
		s.reset(StateLoading)
	}
	epoch := s.epoch
	s.token = token
	s.syncing = !isAdmin
	s.mu.Unlock()

	if isAdmin {
		return nil
	}

	var cart models.Cart
	var wishlist models.Wishlist
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cart, err = s.remote.FetchCart(gctx, token)
		return err
	})
	g.Go(func() error {
		var err error
		wishlist, err = s.remote.FetchWishlist(gctx, token)
		return err
	})
	err := g.Wait()

	s.mu.Lock()
	// A logout or another login raced the fetch.
	if s.epoch != epoch {
		s.mu.Unlock()
		return err
	}

	if err != nil {
		// Without the server copy, local edits stay local.
		s.syncing = false
		s.state[ListCart] = loadedState(len(s.cartOps) > 0)
		s.state[ListWishlist] = loadedState(len(s.wishlistOps) > 0)
		s.cartOps = nil
		s.wishlistOps = nil
		s.mu.Unlock()
		return err
	}

	if cart == nil {
		cart = models.Cart{}
	}
	for _, op := range s.cartOps {
		cart = op(cart)
	}
	if wishlist == nil {
		wishlist = models.Wishlist{}
	}
	for _, op := range s.wishlistOps {
		wishlist, _ = op(wishlist)
	}
	s.cart = cart
	s.wishlist = wishlist

	writeCart := len(s.cartOps) > 0
	writeWishlist := len(s.wishlistOps) > 0
	s.state[ListCart] = loadedState(writeCart)
	s.state[ListWishlist] = loadedState(writeWishlist)
	s.cartOps = nil
	s.wishlistOps = nil
	s.mu.Unlock()

	if writeCart {
		s.schedule(ListCart)
	}
	if writeWishlist {
		s.schedule(ListWishlist)
	}
	return nil
}

func loadedState(changed bool) State {
	if changed {
		return StateDirty
	}
	return StateLoaded
}

// Logout drops pending writes and clears both lists locally.
func (s *Session) Logout() {
	s.debouncer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(StateSignedOut)
	s.token = ""
	s.syncing = false
}

// Close cancels pending writes without clearing local state.
func (s *Session) Close() {
	s.debouncer.Stop()
}

func (s *Session) Cart() models.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

func (s *Session) Wishlist() models.Wishlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wishlist.Clone()
}

// CartCount is the total quantity across cart entries.
func (s *Session) CartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, item := range s.cart {
		n += item.Quantity
	}
	return n
}

func (s *Session) InWishlist(id primitive.ObjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wishlist.Contains(id)
}

func (s *Session) State(list List) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[list]
}

//
// --- Cart mutations ---
//

func (s *Session) AddToCart(id primitive.ObjectID, qty int) {
	s.mutateCart(func(c models.Cart) models.Cart { return c.Add(id, qty) })
}

// DecreaseQuantity removes one unit and drops the entry at zero.
func (s *Session) DecreaseQuantity(id primitive.ObjectID) {
	s.mutateCart(func(c models.Cart) models.Cart { return c.Decrement(id) })
}

func (s *Session) RemoveFromCart(id primitive.ObjectID) {
	s.mutateCart(func(c models.Cart) models.Cart { return c.Remove(id) })
}

func (s *Session) ClearCart() {
	s.mutateCart(func(models.Cart) models.Cart { return models.Cart{} })
}

//
// --- Wishlist mutations ---
//

// AddToWishlist reports false when the product was already listed.
// Nothing is written in that case.
func (s *Session) AddToWishlist(id primitive.ObjectID) bool {
	return s.mutateWishlist(func(w models.Wishlist) (models.Wishlist, bool) { return w.Add(id) })
}

func (s *Session) RemoveFromWishlist(id primitive.ObjectID) {
	s.mutateWishlist(func(w models.Wishlist) (models.Wishlist, bool) { return w.Remove(id), true })
}

func (s *Session) ToggleWishlist(id primitive.ObjectID) {
	s.mutateWishlist(func(w models.Wishlist) (models.Wishlist, bool) { return w.Toggle(id), true })
}

// Flush writes any pending change immediately. If a write for the list is
// already on the wire, the change goes out right after it instead.
func (s *Session) Flush() {
	s.debouncer.Flush(string(ListCart))
	s.debouncer.Flush(string(ListWishlist))
}

func (s *Session) mutateCart(op cartOp) {
	s.mu.Lock()
	s.cart = op(s.cart)
	if s.state[ListCart] == StateLoading {
		s.cartOps = append(s.cartOps, op)
	}
	schedule := s.markDirty(ListCart)
	s.mu.Unlock()

	if schedule {
		s.schedule(ListCart)
	}
}

func (s *Session) mutateWishlist(op wishlistOp) bool {
	s.mu.Lock()
	next, changed := op(s.wishlist)
	s.wishlist = next
	if !changed {
		s.mu.Unlock()
		return false
	}
	if s.state[ListWishlist] == StateLoading {
		s.wishlistOps = append(s.wishlistOps, op)
	}
	schedule := s.markDirty(ListWishlist)
	s.mu.Unlock()

	if schedule {
		s.schedule(ListWishlist)
	}
	return true
}

// markDirty must be called with mu held. It reports whether a write should be scheduled.
func (s *Session) markDirty(list List) bool {
	s.version[list]++
	switch s.state[list] {
	case StateSignedOut, StateLoading:
		return false
	}
	s.state[list] = StateDirty
	return s.syncing
}

func (s *Session) schedule(list List) {
	s.debouncer.Schedule(string(list), func() { s.write(list) })
}

// write sends the current snapshot of list. A call that arrives while an
// earlier write for the same list is on the wire returns at once and leaves
// a rerun request; the running write then sends the latest snapshot once more.
func (s *Session) write(list List) {
	s.mu.Lock()
	if s.inflight[list] {
		s.rerun[list] = true
		s.mu.Unlock()
		return
	}
	s.inflight[list] = true
	defer func() {
		s.inflight[list] = false
		s.mu.Unlock()
	}()

	for {
		s.rerun[list] = false
		if !s.syncing || s.state[list] != StateDirty {
			return
		}
		token := s.token
		epoch := s.epoch
		version := s.version[list]
		cart := s.cart.Clone()
		wishlist := s.wishlist.Clone()
		s.mu.Unlock()

		err := s.send(list, token, cart, wishlist)
		if err != nil {
			s.log.Warn().Err(err).Str("list", string(list)).Msg("Failed to sync list")
			if s.onError != nil {
				s.onError(list, err)
			}
		}

		s.mu.Lock()
		if err == nil && s.epoch == epoch && s.version[list] == version {
			s.state[list] = StateSynced
		}
		if !s.rerun[list] {
			return
		}
	}
}

func (s *Session) send(list List, token string, cart models.Cart, wishlist models.Wishlist) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	switch list {
	case ListCart:
		return s.remote.ReplaceCart(ctx, token, cart)
	case ListWishlist:
		return s.remote.ReplaceWishlist(ctx, token, wishlist)
	}
	return nil
}
