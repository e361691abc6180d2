package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainresource "bookly/internal/domain/resource"
	"bookly/internal/domain/shared/timeslot"
)

type ResourceRepository struct {
	col *mongo.Collection
}

func NewResourceRepository(db *mongo.Database) *ResourceRepository {
	return &ResourceRepository{col: db.Collection(colResources)}
}

func (r *ResourceRepository) ByID(ctx context.Context, id domainresource.ID) (*domainresource.Resource, error) {
	var doc resourceDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainresource.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate()
}

func (r *ResourceRepository) Save(ctx context.Context, res *domainresource.Resource) error {
	doc := newResourceDocument(res)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

func (r *ResourceRepository) List(ctx context.Context) ([]*domainresource.Resource, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []resourceDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainresource.Resource, 0, len(docs))
	for _, d := range docs {
		res, err := d.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

type resourceDocument struct {
	ID        string `bson:"_id"`
	Name      string `bson:"name"`
	Category  string `bson:"category"`
	Capacity  int    `bson:"capacity"`
	Status    string `bson:"status"`
	OpensAt   string `bson:"opens_at,omitempty"`
	ClosesAt  string `bson:"closes_at,omitempty"`
	CreatedAt int64  `bson:"created_at"`
	UpdatedAt int64  `bson:"updated_at"`
}

func newResourceDocument(r *domainresource.Resource) resourceDocument {
	doc := resourceDocument{
		ID:        string(r.ID),
		Name:      r.Name,
		Category:  string(r.Category),
		Capacity:  r.Capacity,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt.UnixMilli(),
		UpdatedAt: r.UpdatedAt.UnixMilli(),
	}
	if r.OpeningHours != nil {
		doc.OpensAt = r.OpeningHours.Start.String()
		doc.ClosesAt = r.OpeningHours.End.String()
	}
	return doc
}

func (d resourceDocument) toAggregate() (*domainresource.Resource, error) {
	res := &domainresource.Resource{
		ID:        domainresource.ID(d.ID),
		Name:      d.Name,
		Category:  domainresource.Category(d.Category),
		Capacity:  d.Capacity,
		Status:    domainresource.Status(d.Status),
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
	}
	if d.OpensAt != "" && d.ClosesAt != "" {
		hours, err := timeslot.ParseSlot(d.OpensAt, d.ClosesAt)
		if err != nil {
			return nil, err
		}
		res.OpeningHours = &hours
	}
	return res, nil
}

var _ domainresource.Repository = (*ResourceRepository)(nil)
