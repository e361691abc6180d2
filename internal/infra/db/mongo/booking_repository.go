package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "bookly/internal/domain/booking"
	domainresource "bookly/internal/domain/resource"
	"bookly/internal/domain/shared/timeslot"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(colBookings)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate()
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainbooking.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

// HasOverlap compares HH:mm strings, which order the same way as the clock values.
func (r *BookingRepository) HasOverlap(ctx context.Context, q domainbooking.OverlapQuery) (bool, error) {
	filter := bson.M{
		"resource_id": string(q.ResourceID),
		"date":        q.Date.String(),
		"status":      bson.M{"$in": statusStrings(domainbooking.BlockingStatuses)},
		"start_time":  bson.M{"$lt": q.Slot.End.String()},
		"end_time":    bson.M{"$gt": q.Slot.Start.String()},
	}
	if q.Exclude != "" {
		filter["_id"] = bson.M{"$ne": string(q.Exclude)}
	}
	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *BookingRepository) List(ctx context.Context, f domainbooking.ListFilter) ([]*domainbooking.Booking, error) {
	filter := bson.M{}
	if f.ResourceID != "" {
		filter["resource_id"] = string(f.ResourceID)
	}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if !f.Date.IsZero() {
		filter["date"] = f.Date.String()
	}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": statusStrings(f.Statuses)}
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "start_time", Value: 1}, {Key: "created_at", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, d := range docs {
		b, err := d.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

type bookingDocument struct {
	ID             string `bson:"_id"`
	ResourceID     string `bson:"resource_id"`
	UserID         string `bson:"user_id"`
	Date           string `bson:"date"`
	StartTime      string `bson:"start_time"`
	EndTime        string `bson:"end_time"`
	Status         string `bson:"status"`
	Notes          string `bson:"notes"`
	Recurring      bool   `bson:"is_recurring"`
	RecurringEvery string `bson:"recurring_frequency,omitempty"`
	RecurringUntil string `bson:"recurring_until,omitempty"`
	CreatedAt      int64  `bson:"created_at"`
	UpdatedAt      int64  `bson:"updated_at"`
	Version        int64  `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	doc := bookingDocument{
		ID:         string(b.ID),
		ResourceID: string(b.ResourceID),
		UserID:     b.UserID,
		Date:       b.Date.String(),
		StartTime:  b.Slot.Start.String(),
		EndTime:    b.Slot.End.String(),
		Status:     string(b.Status),
		Notes:      b.Notes,
		Recurring:  b.Recurrence.Recurring,
		CreatedAt:  b.CreatedAt.UnixMilli(),
		UpdatedAt:  b.UpdatedAt.UnixMilli(),
		Version:    b.Version,
	}
	if b.Recurrence.Recurring {
		doc.RecurringEvery = string(b.Recurrence.Pattern)
		if !b.Recurrence.Until.IsZero() {
			doc.RecurringUntil = b.Recurrence.Until.String()
		}
	}
	return doc
}

func (d bookingDocument) toAggregate() (*domainbooking.Booking, error) {
	date, err := timeslot.ParseDate(d.Date)
	if err != nil {
		return nil, err
	}
	slot, err := timeslot.ParseSlot(d.StartTime, d.EndTime)
	if err != nil {
		return nil, err
	}
	agg := &domainbooking.Booking{
		ID:         domainbooking.BookingID(d.ID),
		ResourceID: domainresource.ID(d.ResourceID),
		UserID:     d.UserID,
		Date:       date,
		Slot:       slot,
		Status:     domainbooking.Status(d.Status),
		Notes:      d.Notes,
		CreatedAt:  timestampToTime(d.CreatedAt),
		UpdatedAt:  timestampToTime(d.UpdatedAt),
		Version:    d.Version,
	}
	if d.Recurring {
		agg.Recurrence = domainbooking.Recurrence{Recurring: true, Pattern: domainbooking.Pattern(d.RecurringEvery)}
		if d.RecurringUntil != "" {
			until, err := timeslot.ParseDate(d.RecurringUntil)
			if err != nil {
				return nil, err
			}
			agg.Recurrence.Until = until
		}
	}
	return agg, nil
}

func statusStrings(statuses []domainbooking.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
