package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/vapealley/internal/domain"
)

const (
	defaultFetchTimeout  = 5 * time.Second
	defaultMirrorTimeout = 5 * time.Second
)

// mirrorOp is one cart change to replay on the server.
type mirrorOp struct {
	name      string
	productID string
	apply     func(ctx context.Context, s Session) error
}

// Reconciler owns the shopper's cart. As a guest the cart lives only in the
// LocalStore. After Login every change is also mirrored to the server in the
// order it was made; mirror failures are logged and never undo the local
// change.
type Reconciler struct {
	mu      sync.Mutex
	lines   []Line
	session *Session

	store  LocalStore
	remote RemoteCart
	logger *slog.Logger

	fetchTimeout  time.Duration
	mirrorTimeout time.Duration
	onOpen        func()

	ops *outbox
	wg  sync.WaitGroup
}

type Option func(*Reconciler)

// WithOpenHook registers fn to run after an item is added, when the cart
// should be shown to the shopper.
func WithOpenHook(fn func()) Option {
	return func(r *Reconciler) { r.onOpen = fn }
}

func WithTimeouts(fetch, mirror time.Duration) Option {
	return func(r *Reconciler) {
		r.fetchTimeout = fetch
		r.mirrorTimeout = mirror
	}
}

// New restores the guest cart from store.
func New(store LocalStore, remote RemoteCart, logger *slog.Logger, opts ...Option) (*Reconciler, error) {
	lines, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load local cart: %w", err)
	}
	r := &Reconciler{
		lines:         lines,
		store:         store,
		remote:        remote,
		logger:        logger,
		fetchTimeout:  defaultFetchTimeout,
		mirrorTimeout: defaultMirrorTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Reconciler) Authenticated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil
}

// Login fetches the server cart and resolves it against the local one. If the
// fetch fails the local cart is kept and the session still starts.
func (r *Reconciler) Login(ctx context.Context, s Session) error {
	if s.UserID == "" || s.Token == "" {
		return domain.Validationf("session", "user id and token are required")
	}
	if r.Authenticated() {
		r.Logout()
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	server, fetchErr := r.remote.Fetch(fetchCtx, s)
	cancel()
	if fetchErr != nil {
		r.logger.WarnContext(ctx, "failed to fetch server cart, keeping local cart", "user_id", s.UserID, "error", fetchErr)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if fetchErr == nil {
		r.lines = ResolveLogin(r.lines, server)
	}
	if r.session != nil {
		// a concurrent Login won; its worker drains and exits
		r.ops.close()
	}
	r.session = &s
	r.ops = newOutbox()
	r.wg.Add(1)
	go r.mirror(s, r.ops)

	return r.persist()
}

// Logout ends the session. Queued mirror ops are still sent before it
// returns. The local cart is kept and continues as the guest cart.
func (r *Reconciler) Logout() {
	r.mu.Lock()
	if r.session == nil {
		r.mu.Unlock()
		return
	}
	r.session = nil
	r.ops.close()
	r.ops = nil
	r.mu.Unlock()

	r.wg.Wait()
}

// Add puts quantity more of p in the cart.
func (r *Reconciler) Add(p *domain.Product, quantity int, color string) error {
	if quantity < 1 {
		return domain.Validationf("quantity", "must be at least 1")
	}

	r.mu.Lock()
	if i := indexOf(r.lines, p.ID); i >= 0 {
		r.lines[i].Quantity += quantity
		if color != "" {
			r.lines[i].SelectedColor = color
		}
	} else {
		r.lines = append(r.lines, lineFromProduct(p, quantity, color))
	}
	id := p.ID
	r.enqueue(mirrorOp{name: "add", productID: id, apply: func(ctx context.Context, s Session) error {
		return r.remote.Add(ctx, s, id, quantity, color)
	}})
	err := r.persist()
	r.mu.Unlock()

	if r.onOpen != nil {
		r.onOpen()
	}
	return err
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less
// removes it.
func (r *Reconciler) UpdateQuantity(productID string, quantity int) error {
	if quantity <= 0 {
		return r.Remove(productID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := indexOf(r.lines, productID)
	if i < 0 {
		return domain.NotFoundf("product %s is not in the cart", productID)
	}
	r.lines[i].Quantity = quantity
	r.enqueue(mirrorOp{name: "update", productID: productID, apply: func(ctx context.Context, s Session) error {
		return r.remote.SetQuantity(ctx, s, productID, quantity)
	}})
	return r.persist()
}

// Remove drops a line. Removing a product that is not in the cart does
// nothing.
func (r *Reconciler) Remove(productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := indexOf(r.lines, productID)
	if i < 0 {
		return nil
	}
	r.lines = append(r.lines[:i], r.lines[i+1:]...)
	r.enqueue(mirrorOp{name: "remove", productID: productID, apply: func(ctx context.Context, s Session) error {
		return r.remote.Remove(ctx, s, productID)
	}})
	return r.persist()
}

// Clear empties the cart, typically after checkout.
func (r *Reconciler) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lines = nil
	r.enqueue(mirrorOp{name: "clear", apply: r.remote.Clear})
	return r.persist()
}

func (r *Reconciler) Lines() []Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneLines(r.lines)
}

// Count is the number of items across all lines.
func (r *Reconciler) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, l := range r.lines {
		n += l.Quantity
	}
	return n
}

func (r *Reconciler) Subtotal() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total int64
	for _, l := range r.lines {
		total += l.Subtotal()
	}
	return total
}

// persist must be called with r.mu held.
func (r *Reconciler) persist() error {
	if err := r.store.Save(r.lines); err != nil {
		r.logger.Error("failed to persist local cart", "error", err)
		return fmt.Errorf("failed to persist local cart: %w", err)
	}
	return nil
}

// enqueue must be called with r.mu held. It never blocks. Guests have no
// queue.
func (r *Reconciler) enqueue(op mirrorOp) {
	if r.session == nil {
		return
	}
	r.ops.push(op)
}

func (r *Reconciler) mirror(s Session, ops *outbox) {
	defer r.wg.Done()

	for {
		op, ok := ops.next()
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), r.mirrorTimeout)
		if err := op.apply(ctx, s); err != nil {
			r.logger.Warn("failed to mirror cart change",
				"op", op.name,
				"product_id", op.productID,
				"user_id", s.UserID,
				"error", err,
			)
		}
		cancel()
	}
}
