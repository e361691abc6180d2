package waitlist

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookly/internal/app/commands"
	"bookly/internal/app/dto"
	handlersupport "bookly/internal/app/handlers/support"
	"bookly/internal/app/identity"
	"bookly/internal/app/locking"
	"bookly/internal/app/middleware"
	"bookly/internal/app/outbox"
	"bookly/internal/app/promotion"
	"bookly/internal/app/queries"
	"bookly/internal/app/uow"
	domainresource "bookly/internal/domain/resource"
	"bookly/internal/domain/shared/timeslot"
	"bookly/internal/domain/shared/validation"
	domainuser "bookly/internal/domain/user"
	domainwaitlist "bookly/internal/domain/waitlist"
)

const (
	addEntryKey     = "waitlist.add"
	removeEntryKey  = "waitlist.remove"
	promoteEntryKey = "waitlist.promote"
	listEntriesKey  = "waitlist.list"
)

type AddEntryCommand struct {
	CommandID       string
	Actor           identity.Actor
	ResourceID      string
	UserID          string
	Date            string
	StartTime       string
	EndTime         string
	Priority        *int
	IdempotencyKeyV string
}

func (c AddEntryCommand) Key() string                   { return addEntryKey }
func (c AddEntryCommand) ActorIdentity() identity.Actor { return c.Actor }

func (c AddEntryCommand) IdempotencyKey() string {
	if c.IdempotencyKeyV == "" {
		return ""
	}
	return addEntryKey + ":" + c.Actor.UserID + ":" + c.IdempotencyKeyV
}

func (c AddEntryCommand) ResultPrototype() any { return &dto.WaitingListEntry{} }

func (c AddEntryCommand) RequestFingerprint() string {
	priority := ""
	if c.Priority != nil {
		priority = strconv.Itoa(*c.Priority)
	}
	return middleware.Fingerprint(strings.TrimSpace(c.ResourceID), c.UserID, c.Date, c.StartTime, c.EndTime, priority)
}

func (c AddEntryCommand) parse() (timeslot.Date, timeslot.Slot, error) {
	verr := &validation.Error{}
	if strings.TrimSpace(c.ResourceID) == "" {
		verr.Add("resource_id", "The resource id field is required.")
	}
	date, err := timeslot.ParseDate(c.Date)
	if err != nil {
		verr.Add("date", "The date does not match the format Y-m-d.")
	}
	start, errStart := timeslot.ParseClock(c.StartTime)
	if errStart != nil {
		verr.Add("start_time", "The start time does not match the format H:i.")
	}
	end, errEnd := timeslot.ParseClock(c.EndTime)
	if errEnd != nil {
		verr.Add("end_time", "The end time does not match the format H:i.")
	}
	var slot timeslot.Slot
	if errStart == nil && errEnd == nil {
		if slot, err = timeslot.NewSlot(start, end); err != nil {
			verr.Add("end_time", "The end time must be a time after start time.")
		}
	}
	if c.Priority != nil && *c.Priority < 0 {
		verr.Add("priority", "The priority must be at least 0.")
	}
	return date, slot, verr.Err()
}

func (c AddEntryCommand) Validate() error {
	_, _, err := c.parse()
	return err
}

type RemoveEntryCommand struct {
	Actor   identity.Actor
	EntryID string
}

func (c RemoveEntryCommand) Key() string                   { return removeEntryKey }
func (c RemoveEntryCommand) ActorIdentity() identity.Actor { return c.Actor }

type PromoteEntryCommand struct {
	Actor   identity.Actor
	EntryID string
}

func (c PromoteEntryCommand) Key() string                   { return promoteEntryKey }
func (c PromoteEntryCommand) ActorIdentity() identity.Actor { return c.Actor }

func (c PromoteEntryCommand) LockScope(ctx context.Context, unit uow.UnitOfWork) ([]locking.Key, error) {
	entry, err := unit.WaitingList().ByID(ctx, domainwaitlist.EntryID(c.EntryID))
	if errors.Is(err, domainwaitlist.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []locking.Key{locking.SlotKey(entry.ResourceID, entry.Date)}, nil
}

type Handlers struct {
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Promoter *promotion.Promoter
	Logger   *slog.Logger
	Location *time.Location
	Clock    func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Clock != nil {
		return h.Clock().UTC()
	}
	return time.Now().UTC()
}

func (h *Handlers) record(ctx context.Context, entry *domainwaitlist.Entry) error {
	encoder := h.Encoder
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	return outbox.RecordDomainEvents(ctx, h.Outbox, encoder, entry.Drain())
}

func (h *Handlers) log(msg string, args ...any) {
	if h.Logger != nil {
		h.Logger.Info(msg, args...)
	}
}

func (h *Handlers) Add(ctx context.Context, cmd AddEntryCommand) (*dto.WaitingListEntry, error) {
	if err := cmd.Actor.Require(); err != nil {
		return nil, err
	}
	date, slot, err := cmd.parse()
	if err != nil {
		return nil, err
	}
	today := timeslot.DateOf(h.now().In(location(h.Location)))
	if date.Before(today) {
		return nil, validation.Field("date", "The date must be today or a later date.")
	}
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		userID = cmd.Actor.UserID
	}
	if userID != cmd.Actor.UserID && !cmd.Actor.IsStaff() {
		return nil, identity.ErrForbidden
	}
	unit, err := handlersupport.UnitFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := unit.Users().ByID(ctx, domainuser.ID(userID)); err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, validation.Field("user_id", "The selected user id is invalid.")
		}
		return nil, err
	}
	if _, err := unit.Resources().ByID(ctx, domainresource.ID(strings.TrimSpace(cmd.ResourceID))); err != nil {
		return nil, err
	}
	priority := 0
	if cmd.Priority != nil {
		priority = *cmd.Priority
	}
	id := cmd.CommandID
	if id == "" {
		id = uuid.NewString()
	}
	entry, err := domainwaitlist.NewEntry(domainwaitlist.CreateParams{
		ID:         domainwaitlist.EntryID(id),
		ResourceID: domainresource.ID(strings.TrimSpace(cmd.ResourceID)),
		UserID:     userID,
		Date:       date,
		Slot:       slot,
		Priority:   priority,
		CreatedAt:  h.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.WaitingList().Save(ctx, entry); err != nil {
		return nil, err
	}
	if err := h.record(ctx, entry); err != nil {
		return nil, err
	}
	h.log("waiting list entry added", "entry_id", entry.ID, "resource_id", entry.ResourceID, "user_id", entry.UserID, "actor_id", cmd.Actor.UserID)
	out := dto.MapWaitingListEntry(entry)
	return &out, nil
}

func (h *Handlers) Remove(ctx context.Context, cmd RemoveEntryCommand) (*dto.WaitingListEntry, error) {
	if err := cmd.Actor.Require(); err != nil {
		return nil, err
	}
	unit, err := handlersupport.UnitFromContext(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := unit.WaitingList().ByID(ctx, domainwaitlist.EntryID(cmd.EntryID))
	if err != nil {
		return nil, err
	}
	if err := cmd.Actor.RequireOwnerOrStaff(entry.UserID); err != nil {
		return nil, err
	}
	if err := entry.Remove(cmd.Actor.UserID, h.now()); err != nil {
		return nil, err
	}
	if err := unit.WaitingList().Save(ctx, entry); err != nil {
		return nil, err
	}
	if err := h.record(ctx, entry); err != nil {
		return nil, err
	}
	h.log("waiting list entry removed", "entry_id", entry.ID, "actor_id", cmd.Actor.UserID)
	out := dto.MapWaitingListEntry(entry)
	return &out, nil
}

func (h *Handlers) Promote(ctx context.Context, cmd PromoteEntryCommand) (*dto.Booking, error) {
	if err := cmd.Actor.RequireStaff(); err != nil {
		return nil, err
	}
	if h.Promoter == nil {
		return nil, errors.New("waitlist: promoter not configured")
	}
	unit, err := handlersupport.UnitFromContext(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := unit.WaitingList().ByID(ctx, domainwaitlist.EntryID(cmd.EntryID))
	if err != nil {
		return nil, err
	}
	booking, err := h.Promoter.PromoteEntry(ctx, unit, entry)
	if err != nil {
		return nil, err
	}
	out := dto.MapBooking(booking)
	return &out, nil
}

type ListEntriesQuery struct {
	Actor      identity.Actor
	ResourceID string
	Date       string
}

func (q ListEntriesQuery) Key() string                   { return listEntriesKey }
func (q ListEntriesQuery) ActorIdentity() identity.Actor { return q.Actor }

type ListEntriesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListEntriesHandler) Handle(ctx context.Context, q ListEntriesQuery) (dto.WaitingListCollection, error) {
	if err := q.Actor.Require(); err != nil {
		return dto.WaitingListCollection{}, err
	}
	verr := &validation.Error{}
	resourceID := strings.TrimSpace(q.ResourceID)
	if resourceID == "" {
		verr.Add("resource_id", "The resource id field is required.")
	}
	date, err := timeslot.ParseDate(q.Date)
	if err != nil {
		verr.Add("date", "The date does not match the format Y-m-d.")
	}
	if err := verr.Err(); err != nil {
		return dto.WaitingListCollection{}, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.WaitingListCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	entries, err := unit.WaitingList().ListActive(execCtx, domainresource.ID(resourceID), date)
	if err != nil {
		return dto.WaitingListCollection{}, err
	}
	domainwaitlist.SortByRank(entries)
	items := make([]dto.WaitingListEntry, 0, len(entries))
	for _, e := range entries {
		if !q.Actor.IsStaff() && e.UserID != q.Actor.UserID {
			continue
		}
		items = append(items, dto.MapWaitingListEntry(e))
	}
	return dto.WaitingListCollection{Items: items}, nil
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// Register wires the waiting-list commands onto the bus.
func Register(bus *commands.InMemoryBus, h *Handlers) {
	commands.RegisterHandler[AddEntryCommand, *dto.WaitingListEntry](bus, addEntryKey, commands.HandlerFunc[AddEntryCommand, *dto.WaitingListEntry](h.Add))
	commands.RegisterHandler[RemoveEntryCommand, *dto.WaitingListEntry](bus, removeEntryKey, commands.HandlerFunc[RemoveEntryCommand, *dto.WaitingListEntry](h.Remove))
	commands.RegisterHandler[PromoteEntryCommand, *dto.Booking](bus, promoteEntryKey, commands.HandlerFunc[PromoteEntryCommand, *dto.Booking](h.Promote))
}

var (
	_ middleware.IdempotentCommand                                 = (*AddEntryCommand)(nil)
	_ middleware.Fingerprinted                                     = AddEntryCommand{}
	_ locking.Scoped                                               = PromoteEntryCommand{}
	_ queries.Handler[ListEntriesQuery, dto.WaitingListCollection] = (*ListEntriesHandler)(nil)
)
