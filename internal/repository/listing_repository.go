package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jimmygitz3/final-project/internal/model"
	dbmongo "github.com/jimmygitz3/final-project/internal/mongo"
)

// ErrLimit is returned when a listing already holds the maximum images.
var ErrLimit = fmt.Errorf("image limit reached")

type ListingRepository struct {
	coll *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{coll: db.Collection(dbmongo.Listings)}
}

// Create inserts a listing and fills in its ID.
func (r *ListingRepository) Create(ctx context.Context, l *model.Listing) error {
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, l); err != nil {
		return fmt.Errorf("ListingRepository.Create: %w", translate(err))
	}
	return nil
}

func (r *ListingRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Listing, error) {
	var l model.Listing
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		return nil, fmt.Errorf("ListingRepository.GetByID: %w", translate(err))
	}
	return &l, nil
}

// Update rewrites the fields a landlord may edit.
func (r *ListingRepository) Update(ctx context.Context, l *model.Listing) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": l.ID}, bson.M{"$set": bson.M{
		"title":              l.Title,
		"description":        l.Description,
		"price":              l.Price,
		"location":           l.Location,
		"propertyType":       l.PropertyType,
		"amenities":          l.Amenities,
		"images":             l.Images,
		"nearbyUniversities": l.NearbyUniversities,
		"updatedAt":          l.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("ListingRepository.Update: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("ListingRepository.Update: %w", ErrNotFound)
	}
	return nil
}

// IncrementViews bumps the view counter and returns the updated listing.
func (r *ListingRepository) IncrementViews(ctx context.Context, id primitive.ObjectID) (*model.Listing, error) {
	var l model.Listing
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id},
		bson.M{"$inc": bson.M{"views": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&l)
	if err != nil {
		return nil, fmt.Errorf("ListingRepository.IncrementViews: %w", translate(err))
	}
	return &l, nil
}

// Search returns active, paid and available listings, newest first.
func (r *ListingRepository) Search(ctx context.Context, f model.ListingFilter) ([]model.Listing, error) {
	filter := bson.M{
		"isActive":           true,
		"paymentStatus":      model.ListingPaymentPaid,
		"availabilityStatus": model.Available,
	}
	if f.County != "" {
		filter["location.county"] = contains(f.County)
	}
	if f.Town != "" {
		filter["location.town"] = contains(f.Town)
	}
	if f.PropertyType != "" {
		filter["propertyType"] = f.PropertyType
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		filter["price"] = price
	}
	if f.University != "" {
		filter["nearbyUniversities.name"] = contains(f.University)
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	if f.Offset > 0 {
		opts.SetSkip(int64(f.Offset))
	}
	return r.find(ctx, "Search", filter, opts)
}

func (r *ListingRepository) ListByLandlord(ctx context.Context, landlord primitive.ObjectID, limit int) ([]model.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, "ListByLandlord", bson.M{"landlord": landlord}, opts)
}

func (r *ListingRepository) CountByLandlordSince(ctx context.Context, landlord primitive.ObjectID, since time.Time) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"landlord": landlord, "createdAt": bson.M{"$gte": since}})
	if err != nil {
		return 0, fmt.Errorf("ListingRepository.CountByLandlordSince: %w", err)
	}
	return n, nil
}

// Activate marks the listing fee as paid until expiry.
func (r *ListingRepository) Activate(ctx context.Context, id primitive.ObjectID, expiry time.Time) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"isActive":      true,
		"paymentStatus": model.ListingPaymentPaid,
		"paymentExpiry": expiry,
		"updatedAt":     time.Now(),
	}})
	if err != nil {
		return fmt.Errorf("ListingRepository.Activate: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("ListingRepository.Activate: %w", ErrNotFound)
	}
	return nil
}

// SetAvailability writes the availability state. Nil timestamps are unset.
func (r *ListingRepository) SetAvailability(ctx context.Context, id primitive.ObjectID, status model.Availability, markedAt, deleteAt *time.Time) error {
	set := bson.M{"availabilityStatus": status, "updatedAt": time.Now()}
	unset := bson.M{}
	if markedAt != nil {
		set["markedUnavailableAt"] = *markedAt
	} else {
		unset["markedUnavailableAt"] = ""
	}
	if deleteAt != nil {
		set["scheduledDeletionAt"] = *deleteAt
	} else {
		unset["scheduledDeletionAt"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("ListingRepository.SetAvailability: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("ListingRepository.SetAvailability: %w", ErrNotFound)
	}
	return nil
}

// AddImage appends a photo id unless the listing already has max images.
func (r *ListingRepository) AddImage(ctx context.Context, id primitive.ObjectID, fileID string, max int) error {
	filter := bson.M{"_id": id, fmt.Sprintf("images.%d", max-1): bson.M{"$exists": false}}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{
		"$push": bson.M{"images": fileID},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("ListingRepository.AddImage: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("ListingRepository.AddImage: %w", ErrLimit)
	}
	return nil
}

// DueForDeletion lists unavailable listings whose deletion time is <= before.
func (r *ListingRepository) DueForDeletion(ctx context.Context, before time.Time) ([]model.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "scheduledDeletionAt", Value: 1}})
	return r.find(ctx, "DueForDeletion", dueFilter(before), opts)
}

// DeleteIfDue removes the listing only if it is still due at now, so a
// restore that lands after DueForDeletion keeps the listing.
func (r *ListingRepository) DeleteIfDue(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	filter := dueFilter(now)
	filter["_id"] = id
	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("ListingRepository.DeleteIfDue: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func dueFilter(t time.Time) bson.M {
	return bson.M{
		"availabilityStatus":  model.NotAvailable,
		"scheduledDeletionAt": bson.M{"$lte": t},
	}
}

func contains(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func (r *ListingRepository) find(ctx context.Context, op string, filter interface{}, opts *options.FindOptions) ([]model.Listing, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("ListingRepository.%s: %w", op, err)
	}
	list := []model.Listing{}
	if err := cur.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("ListingRepository.%s: %w", op, err)
	}
	return list, nil
}
