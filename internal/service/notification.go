package service

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"louage/internal/domain"
)

// Pusher delivers a notification to an external push channel. Delivery is
// best effort: errors are logged by the dispatcher and never reach callers.
type Pusher interface {
	Push(ctx context.Context, n domain.Notification) error
}

// NotificationListener receives the full mailbox of the user it subscribed
// to, newest first.
type NotificationListener func(notifications []domain.Notification)

// NewNotification contains the parameters for creating a notification.
type NewNotification struct {
	UserID    string
	Type      domain.NotificationType
	Title     string
	Message   string
	ActionURL string
}

// NotificationDispatcher keeps one mailbox per recipient and fans changes out
// to that recipient's subscribers only.
type NotificationDispatcher struct {
	mu          sync.RWMutex
	mailboxes   map[string][]*domain.Notification // newest first
	owners      map[string]string                 // notification id -> user id
	subscribers map[string]map[uint64]NotificationListener
	deliveries  map[string]*sync.Mutex // user id -> delivery order lock
	nextSubID   uint64
	closed      bool

	pusher      Pusher
	pushTimeout time.Duration
	pushes      sync.WaitGroup
	now         func() time.Time
}

// NewNotificationDispatcher creates a new NotificationDispatcher. pusher may be nil.
func NewNotificationDispatcher(pusher Pusher, pushTimeout time.Duration) *NotificationDispatcher {
	if pushTimeout <= 0 {
		pushTimeout = 5 * time.Second
	}
	return &NotificationDispatcher{
		mailboxes:   make(map[string][]*domain.Notification),
		owners:      make(map[string]string),
		subscribers: make(map[string]map[uint64]NotificationListener),
		deliveries:  make(map[string]*sync.Mutex),
		pusher:      pusher,
		pushTimeout: pushTimeout,
		now:         time.Now,
	}
}

// AddNotification stores a notification at the head of the recipient's
// mailbox. The record exists when this returns; the push to the external
// channel happens in the background.
func (d *NotificationDispatcher) AddNotification(ctx context.Context, req NewNotification) (*domain.Notification, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, ErrInvalidUserID
	}
	if !req.Type.Valid() || strings.TrimSpace(req.Title) == "" {
		return nil, ErrInvalidNotification
	}

	n := &domain.Notification{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		CreatedAt: d.now(),
		ActionURL: req.ActionURL,
	}

	d.mu.Lock()
	d.mailboxes[n.UserID] = append([]*domain.Notification{n}, d.mailboxes[n.UserID]...)
	d.owners[n.ID] = n.UserID
	d.mu.Unlock()

	d.broadcast(n.UserID)
	d.push(*n)

	c := *n
	return &c, nil
}

// MarkAsRead sets the read flag of one notification.
func (d *NotificationDispatcher) MarkAsRead(ctx context.Context, notificationID string) error {
	d.mu.Lock()
	userID, ok := d.owners[notificationID]
	if !ok {
		d.mu.Unlock()
		return ErrNotificationNotFound
	}
	for _, n := range d.mailboxes[userID] {
		if n.ID == notificationID {
			n.Read = true
			break
		}
	}
	d.mu.Unlock()

	d.broadcast(userID)
	return nil
}

// MarkAllAsRead sets the read flag of every notification addressed to userID.
func (d *NotificationDispatcher) MarkAllAsRead(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidUserID
	}

	d.mu.Lock()
	for _, n := range d.mailboxes[userID] {
		n.Read = true
	}
	d.mu.Unlock()

	d.broadcast(userID)
	return nil
}

// DeleteNotification removes a notification from its recipient's mailbox.
func (d *NotificationDispatcher) DeleteNotification(ctx context.Context, notificationID string) error {
	d.mu.Lock()
	userID, ok := d.owners[notificationID]
	if !ok {
		d.mu.Unlock()
		return ErrNotificationNotFound
	}
	box := d.mailboxes[userID]
	for i, n := range box {
		if n.ID == notificationID {
			d.mailboxes[userID] = append(box[:i:i], box[i+1:]...)
			break
		}
	}
	if len(d.mailboxes[userID]) == 0 {
		delete(d.mailboxes, userID)
	}
	delete(d.owners, notificationID)
	d.mu.Unlock()

	d.broadcast(userID)
	return nil
}

// ListForUser returns the user's notifications sorted newest first. The
// result is a fresh copy on every call.
func (d *NotificationDispatcher) ListForUser(ctx context.Context, userID string, unreadOnly bool) []domain.Notification {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshotLocked(userID, unreadOnly)
}

// UnreadCount returns the number of unread notifications of a user.
func (d *NotificationDispatcher) UnreadCount(ctx context.Context, userID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	count := 0
	for _, n := range d.mailboxes[userID] {
		if !n.Read {
			count++
		}
	}
	return count
}

// Subscription is a live registration returned by Subscribe.
type Subscription struct {
	d      *NotificationDispatcher
	userID string
	id     uint64
	once   sync.Once
}

// Unsubscribe stops further deliveries. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.d.mu.Lock()
		defer s.d.mu.Unlock()
		if subs, ok := s.d.subscribers[s.userID]; ok {
			delete(subs, s.id)
			if len(subs) == 0 {
				delete(s.d.subscribers, s.userID)
			}
		}
	})
}

// Subscribe registers listener for userID's mailbox. The listener is called
// once immediately with the current mailbox and again after every change to
// it. Calls for one user are serialized and each carries a snapshot at least
// as new as the previous one. Listeners must not block or call back into the
// dispatcher.
func (d *NotificationDispatcher) Subscribe(userID string, listener NotificationListener) (*Subscription, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	delivery := d.deliveryLock(userID)
	delivery.Lock()
	defer delivery.Unlock()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrDispatcherClosed
	}
	d.nextSubID++
	sub := &Subscription{d: d, userID: userID, id: d.nextSubID}
	if d.subscribers[userID] == nil {
		d.subscribers[userID] = make(map[uint64]NotificationListener)
	}
	d.subscribers[userID][sub.id] = listener
	current := d.snapshotLocked(userID, false)
	d.mu.Unlock()

	listener(current)
	return sub, nil
}

// Close drops every subscriber and waits for in-flight pushes to finish.
func (d *NotificationDispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.subscribers = make(map[string]map[uint64]NotificationListener)
	d.mu.Unlock()

	d.pushes.Wait()
}

// deliveryLock returns the lock that orders deliveries to userID.
func (d *NotificationDispatcher) deliveryLock(userID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.deliveries[userID]
	if !ok {
		l = &sync.Mutex{}
		d.deliveries[userID] = l
	}
	return l
}

// broadcast sends the user's current mailbox to their subscribers. The
// snapshot is taken while holding the user's delivery lock, so a delivery
// can never overtake a newer one.
func (d *NotificationDispatcher) broadcast(userID string) {
	d.mu.RLock()
	n := len(d.subscribers[userID])
	d.mu.RUnlock()
	if n == 0 {
		return
	}

	delivery := d.deliveryLock(userID)
	delivery.Lock()
	defer delivery.Unlock()

	d.mu.RLock()
	subs := d.subscribers[userID]
	ids := make([]uint64, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	listeners := make([]NotificationListener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, subs[id])
	}
	current := d.snapshotLocked(userID, false)
	d.mu.RUnlock()

	for _, l := range listeners {
		// Each listener gets its own slice so it may keep or modify it.
		l(append([]domain.Notification(nil), current...))
	}
}

func (d *NotificationDispatcher) push(n domain.Notification) {
	if d.pusher == nil {
		return
	}

	// Add under the lock so Close never races a new push into Wait.
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return
	}
	d.pushes.Add(1)
	d.mu.RUnlock()

	go func() {
		defer d.pushes.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("notification push panicked: id=%s user=%s panic=%v", n.ID, n.UserID, r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.pushTimeout)
		defer cancel()

		if err := d.pusher.Push(ctx, n); err != nil {
			log.Printf("notification push failed: id=%s user=%s type=%s err=%v", n.ID, n.UserID, n.Type, err)
		}
	}()
}

func (d *NotificationDispatcher) snapshotLocked(userID string, unreadOnly bool) []domain.Notification {
	box := d.mailboxes[userID]
	result := make([]domain.Notification, 0, len(box))
	for _, n := range box {
		if unreadOnly && n.Read {
			continue
		}
		result = append(result, *n)
	}
	// Mailboxes are kept newest first; the stable sort only matters if the
	// clock went backwards between inserts.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}
