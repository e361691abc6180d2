package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "bookly/internal/domain/booking"
	domainresource "bookly/internal/domain/resource"
	"bookly/internal/domain/shared/timeslot"
	domainwaitlist "bookly/internal/domain/waitlist"
)

type WaitingListRepository struct {
	col *mongo.Collection
}

func NewWaitingListRepository(db *mongo.Database) *WaitingListRepository {
	return &WaitingListRepository{col: db.Collection(colWaitingList)}
}

func (r *WaitingListRepository) ByID(ctx context.Context, id domainwaitlist.EntryID) (*domainwaitlist.Entry, error) {
	var doc entryDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainwaitlist.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate()
}

func (r *WaitingListRepository) Save(ctx context.Context, e *domainwaitlist.Entry) error {
	doc := newEntryDocument(e)
	filter := bson.M{"_id": doc.ID, "version": e.Version}
	doc.Version = e.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainwaitlist.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainwaitlist.ErrConcurrentUpdate
	}
	e.Version = doc.Version
	return nil
}

func (r *WaitingListRepository) ListActive(ctx context.Context, resourceID domainresource.ID, date timeslot.Date) ([]*domainwaitlist.Entry, error) {
	filter := bson.M{
		"resource_id": string(resourceID),
		"date":        date.String(),
		"status":      string(domainwaitlist.StatusActive),
	}
	opts := options.Find().SetSort(bson.D{{Key: "priority", Value: -1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []entryDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainwaitlist.Entry, 0, len(docs))
	for _, d := range docs {
		e, err := d.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	domainwaitlist.SortByRank(out)
	return out, nil
}

type entryDocument struct {
	ID         string `bson:"_id"`
	ResourceID string `bson:"resource_id"`
	UserID     string `bson:"user_id"`
	Date       string `bson:"date"`
	StartTime  string `bson:"start_time"`
	EndTime    string `bson:"end_time"`
	Priority   int    `bson:"priority"`
	Status     string `bson:"status"`
	BookingID  string `bson:"booking_id,omitempty"`
	CreatedAt  int64  `bson:"created_at"`
	UpdatedAt  int64  `bson:"updated_at"`
	Version    int64  `bson:"version"`
}

func newEntryDocument(e *domainwaitlist.Entry) entryDocument {
	return entryDocument{
		ID:         string(e.ID),
		ResourceID: string(e.ResourceID),
		UserID:     e.UserID,
		Date:       e.Date.String(),
		StartTime:  e.Slot.Start.String(),
		EndTime:    e.Slot.End.String(),
		Priority:   e.Priority,
		Status:     string(e.Status),
		BookingID:  string(e.BookingID),
		CreatedAt:  e.CreatedAt.UnixMilli(),
		UpdatedAt:  e.UpdatedAt.UnixMilli(),
		Version:    e.Version,
	}
}

func (d entryDocument) toAggregate() (*domainwaitlist.Entry, error) {
	date, err := timeslot.ParseDate(d.Date)
	if err != nil {
		return nil, err
	}
	slot, err := timeslot.ParseSlot(d.StartTime, d.EndTime)
	if err != nil {
		return nil, err
	}
	return &domainwaitlist.Entry{
		ID:         domainwaitlist.EntryID(d.ID),
		ResourceID: domainresource.ID(d.ResourceID),
		UserID:     d.UserID,
		Date:       date,
		Slot:       slot,
		Priority:   d.Priority,
		Status:     domainwaitlist.Status(d.Status),
		BookingID:  domainbooking.BookingID(d.BookingID),
		CreatedAt:  timestampToTime(d.CreatedAt),
		UpdatedAt:  timestampToTime(d.UpdatedAt),
		Version:    d.Version,
	}, nil
}

var _ domainwaitlist.Repository = (*WaitingListRepository)(nil)
