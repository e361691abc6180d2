package resources

import (
	"context"
	"sort"
	"strings"

	"bookly/internal/app/dto"
	handlersupport "bookly/internal/app/handlers/support"
	"bookly/internal/app/queries"
	"bookly/internal/app/uow"
	domainbooking "bookly/internal/domain/booking"
	domainresource "bookly/internal/domain/resource"
	"bookly/internal/domain/shared/timeslot"
	"bookly/internal/domain/shared/validation"
)

const (
	listResourcesKey = "resources.list"
	getScheduleKey   = "resources.schedule"
)

type ListResourcesQuery struct {
	Category string
}

func (q ListResourcesQuery) Key() string { return listResourcesKey }

type ListResourcesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListResourcesHandler) Handle(ctx context.Context, q ListResourcesQuery) (dto.ResourceCollection, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ResourceCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	items, err := unit.Resources().List(execCtx)
	if err != nil {
		return dto.ResourceCollection{}, err
	}
	category := domainresource.Category(strings.ToLower(strings.TrimSpace(q.Category)))
	out := make([]dto.Resource, 0, len(items))
	for _, r := range items {
		if category != "" && r.Category != category {
			continue
		}
		out = append(out, dto.MapResource(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return dto.ResourceCollection{Items: out}, nil
}

type GetScheduleQuery struct {
	ResourceID string
	Date       string
}

func (q GetScheduleQuery) Key() string { return getScheduleKey }

type GetScheduleHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetScheduleHandler) Handle(ctx context.Context, q GetScheduleQuery) (dto.Schedule, error) {
	date, err := timeslot.ParseDate(q.Date)
	if err != nil {
		return dto.Schedule{}, validation.Field("date", "The date does not match the format Y-m-d.")
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Schedule{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	res, err := unit.Resources().ByID(execCtx, domainresource.ID(strings.TrimSpace(q.ResourceID)))
	if err != nil {
		return dto.Schedule{}, err
	}
	bookings, err := unit.Bookings().List(execCtx, domainbooking.ListFilter{
		ResourceID: res.ID,
		Date:       date,
		Statuses:   domainbooking.BlockingStatuses,
	})
	if err != nil {
		return dto.Schedule{}, err
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].Slot.Start < bookings[j].Slot.Start })

	out := dto.Schedule{
		Resource: dto.MapResource(res),
		Date:     date.String(),
		Bookings: make([]dto.Booking, 0, len(bookings)),
		Free:     []dto.Window{},
	}
	taken := make([]timeslot.Slot, 0, len(bookings))
	for _, b := range bookings {
		out.Bookings = append(out.Bookings, dto.MapBooking(b))
		taken = append(taken, b.Slot)
	}
	if res.Status != domainresource.StatusMaintenance {
		for _, w := range FreeWindows(res.Window(), taken) {
			out.Free = append(out.Free, dto.MapWindow(w))
		}
	}
	return out, nil
}

// FreeWindows subtracts taken slots, sorted by start, from the bookable window.
func FreeWindows(window timeslot.Slot, taken []timeslot.Slot) []timeslot.Slot {
	var free []timeslot.Slot
	cursor := window.Start
	for _, t := range taken {
		if t.End <= cursor {
			continue
		}
		if t.Start >= window.End {
			break
		}
		if t.Start > cursor {
			free = append(free, timeslot.Slot{Start: cursor, End: t.Start})
		}
		cursor = t.End
	}
	if cursor < window.End {
		free = append(free, timeslot.Slot{Start: cursor, End: window.End})
	}
	return free
}

var (
	_ queries.Handler[ListResourcesQuery, dto.ResourceCollection] = (*ListResourcesHandler)(nil)
	_ queries.Handler[GetScheduleQuery, dto.Schedule]             = (*GetScheduleHandler)(nil)
)
