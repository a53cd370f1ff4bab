package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jimmygitz3/final-project/internal/apperr"
	"github.com/jimmygitz3/final-project/internal/model"
	"github.com/jimmygitz3/final-project/internal/repository"
)

const (
	// DeletionGrace is how long a listing marked unavailable survives.
	DeletionGrace = 24 * time.Hour
	// DefaultPendingWindow is the look-ahead of PendingDeletion.
	DefaultPendingWindow = time.Hour
)

type ListingService struct {
	listings ListingStore
	users    UserStore
	photos   PhotoStore
	access   *ConnectionService
	now      func() time.Time
}

func NewListingService(ls ListingStore, us UserStore, ps PhotoStore, access *ConnectionService) *ListingService {
	return &ListingService{listings: ls, users: us, photos: ps, access: access, now: time.Now}
}

type ListingInput struct {
	Title              string                   `json:"title" binding:"required"`
	Description        string                   `json:"description" binding:"required"`
	Price              float64                  `json:"price" binding:"required"`
	Location           model.Location           `json:"location"`
	PropertyType       model.PropertyType       `json:"propertyType" binding:"required"`
	Amenities          []string                 `json:"amenities"`
	NearbyUniversities []model.NearbyUniversity `json:"nearbyUniversities"`
}

// ListingUpdate is a partial edit; nil fields are left alone.
type ListingUpdate struct {
	Title              *string                  `json:"title"`
	Description        *string                  `json:"description"`
	Price              *float64                 `json:"price"`
	Location           *model.Location          `json:"location"`
	PropertyType       *model.PropertyType      `json:"propertyType"`
	Amenities          []string                 `json:"amenities"`
	NearbyUniversities []model.NearbyUniversity `json:"nearbyUniversities"`
}

// Create stores a new listing for a landlord. It stays hidden from search
// until its listing fee is paid.
func (s *ListingService) Create(ctx context.Context, landlordID primitive.ObjectID, in ListingInput) (*model.Listing, error) {
	u, err := s.users.GetByID(ctx, landlordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Unauthenticated("User not found")
		}
		return nil, fmt.Errorf("ListingService.Create: %w", err)
	}
	if u.Role != model.RoleLandlord {
		return nil, apperr.Forbidden("Only landlords can create listings")
	}
	if err := validateListing(in.Title, in.Price, in.PropertyType, in.Location); err != nil {
		return nil, err
	}

	now := s.now()
	l := &model.Listing{
		Title:              strings.TrimSpace(in.Title),
		Description:        strings.TrimSpace(in.Description),
		Price:              in.Price,
		Location:           in.Location,
		PropertyType:       in.PropertyType,
		Amenities:          nonNil(in.Amenities),
		Images:             []string{},
		LandlordID:         u.ID,
		NearbyUniversities: in.NearbyUniversities,
		IsActive:           false,
		PaymentStatus:      model.ListingPaymentPending,
		AvailabilityStatus: model.Available,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if l.NearbyUniversities == nil {
		l.NearbyUniversities = []model.NearbyUniversity{}
	}
	if err := s.listings.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("ListingService.Create: %w", err)
	}
	log.Printf("[ListingService] listing %s created by %s", l.ID.Hex(), u.ID.Hex())
	return l, nil
}

func (s *ListingService) Update(ctx context.Context, id, actor primitive.ObjectID, in ListingUpdate) (*model.Listing, error) {
	l, err := s.owned(ctx, id, actor, "update")
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		l.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		l.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		l.Price = *in.Price
	}
	if in.Location != nil {
		l.Location = *in.Location
	}
	if in.PropertyType != nil {
		l.PropertyType = *in.PropertyType
	}
	if in.Amenities != nil {
		l.Amenities = in.Amenities
	}
	if in.NearbyUniversities != nil {
		l.NearbyUniversities = in.NearbyUniversities
	}
	if err := validateListing(l.Title, l.Price, l.PropertyType, l.Location); err != nil {
		return nil, err
	}
	l.UpdatedAt = s.now()
	if err := s.listings.Update(ctx, l); err != nil {
		return nil, fmt.Errorf("ListingService.Update: %w", err)
	}
	return l, nil
}

func validateListing(title string, price float64, pt model.PropertyType, loc model.Location) error {
	switch {
	case strings.TrimSpace(title) == "":
		return apperr.Validation("Title is required")
	case price <= 0:
		return apperr.Validation("Price must be greater than zero")
	case !pt.Valid():
		return apperr.Validation("Invalid property type %q", pt)
	case strings.TrimSpace(loc.County) == "" || strings.TrimSpace(loc.Town) == "":
		return apperr.Validation("County and town are required")
	}
	return nil
}

// Get returns a listing and counts the view. Landlord contact details are
// included only for the owner and for tenants holding a live connection.
func (s *ListingService) Get(ctx context.Context, id, viewer primitive.ObjectID) (*model.ListingDetail, error) {
	l, err := s.listings.IncrementViews(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Listing not found")
		}
		return nil, fmt.Errorf("ListingService.Get: %w", err)
	}
	detail := &model.ListingDetail{Listing: *l}
	if u, err := s.users.GetByID(ctx, l.LandlordID); err == nil {
		contact := model.Contact{ID: u.ID, Name: u.Name}
		if s.access != nil && s.access.CanSeeContact(ctx, viewer, l) {
			contact = u.Contact()
			detail.ContactUnlocked = true
		}
		detail.Landlord = &contact
	}
	return detail, nil
}

func (s *ListingService) Search(ctx context.Context, f model.ListingFilter) ([]model.Listing, error) {
	if f.PropertyType != "" && !f.PropertyType.Valid() {
		return nil, apperr.Validation("Invalid property type %q", f.PropertyType)
	}
	list, err := s.listings.Search(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("ListingService.Search: %w", err)
	}
	return list, nil
}

func (s *ListingService) MyListings(ctx context.Context, landlordID primitive.ObjectID) ([]model.Listing, error) {
	list, err := s.listings.ListByLandlord(ctx, landlordID, 0)
	if err != nil {
		return nil, fmt.Errorf("ListingService.MyListings: %w", err)
	}
	return list, nil
}

// MarkUnavailable hides the listing and schedules it for deletion after
// DeletionGrace.
func (s *ListingService) MarkUnavailable(ctx context.Context, id, actor primitive.ObjectID) (*model.Listing, error) {
	l, err := s.owned(ctx, id, actor, "modify")
	if err != nil {
		return nil, err
	}
	if l.AvailabilityStatus == model.NotAvailable {
		return nil, apperr.Validation("Listing is already marked as not available")
	}
	now := s.now()
	deleteAt := now.Add(DeletionGrace)
	if err := s.listings.SetAvailability(ctx, id, model.NotAvailable, &now, &deleteAt); err != nil {
		return nil, fmt.Errorf("ListingService.MarkUnavailable: %w", err)
	}
	l.AvailabilityStatus = model.NotAvailable
	l.MarkedUnavailableAt = &now
	l.ScheduledDeletionAt = &deleteAt
	log.Printf("[ListingService] listing %s marked unavailable, deletion at %s", id.Hex(), deleteAt.Format(time.RFC3339))
	return l, nil
}

func (s *ListingService) RestoreAvailability(ctx context.Context, id, actor primitive.ObjectID) (*model.Listing, error) {
	l, err := s.owned(ctx, id, actor, "modify")
	if err != nil {
		return nil, err
	}
	if l.AvailabilityStatus != model.NotAvailable {
		return nil, apperr.Validation("Listing is not marked as unavailable")
	}
	if err := s.listings.SetAvailability(ctx, id, model.Available, nil, nil); err != nil {
		return nil, fmt.Errorf("ListingService.RestoreAvailability: %w", err)
	}
	l.AvailabilityStatus = model.Available
	l.MarkedUnavailableAt = nil
	l.ScheduledDeletionAt = nil
	log.Printf("[ListingService] listing %s restored", id.Hex())
	return l, nil
}

// Cleanup deletes every listing whose grace period has run out. Each delete
// re-checks the predicate, so a listing restored after selection survives.
func (s *ListingService) Cleanup(ctx context.Context) (*model.CleanupManifest, error) {
	return s.cleanup(ctx, primitive.NilObjectID)
}

// CleanupOwned runs the cleanup over the landlord's own listings only.
func (s *ListingService) CleanupOwned(ctx context.Context, landlordID primitive.ObjectID) (*model.CleanupManifest, error) {
	if landlordID.IsZero() {
		return nil, apperr.Forbidden("Not authorized to run cleanup")
	}
	return s.cleanup(ctx, landlordID)
}

// cleanup deletes due listings; a non-zero owner restricts it to that
// landlord's listings.
func (s *ListingService) cleanup(ctx context.Context, owner primitive.ObjectID) (*model.CleanupManifest, error) {
	now := s.now()
	due, err := s.listings.DueForDeletion(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("ListingService.Cleanup: %w", err)
	}

	manifest := &model.CleanupManifest{DeletedListings: []model.DeletedListing{}}
	for _, l := range due {
		if !owner.IsZero() && l.LandlordID != owner {
			continue
		}
		deleted, err := s.listings.DeleteIfDue(ctx, l.ID, now)
		if err != nil {
			log.Printf("[ListingService] cleanup: deleting %s: %v", l.ID.Hex(), err)
			continue
		}
		if !deleted {
			continue
		}
		for _, photo := range l.Images {
			if err := s.photos.Delete(ctx, photo); err != nil {
				log.Printf("[ListingService] cleanup: photo %s of %s: %v", photo, l.ID.Hex(), err)
			}
		}
		manifest.DeletedListings = append(manifest.DeletedListings, model.DeletedListing{
			ID:                  l.ID,
			Title:               l.Title,
			MarkedUnavailableAt: l.MarkedUnavailableAt,
		})
	}
	manifest.DeletedCount = len(manifest.DeletedListings)
	if manifest.DeletedCount > 0 {
		log.Printf("[ListingService] cleanup removed %d listing(s)", manifest.DeletedCount)
	}
	return manifest, nil
}

// PendingDeletion lists the landlord's listings the cleanup will remove
// within window. The window cannot exceed DeletionGrace.
func (s *ListingService) PendingDeletion(ctx context.Context, landlordID primitive.ObjectID, window time.Duration) ([]model.PendingDeletion, error) {
	if landlordID.IsZero() {
		return nil, apperr.Forbidden("Not authorized to view pending deletions")
	}
	if window <= 0 {
		window = DefaultPendingWindow
	}
	if window > DeletionGrace {
		return nil, apperr.Validation("Window must be at most %s", DeletionGrace)
	}
	due, err := s.listings.DueForDeletion(ctx, s.now().Add(window))
	if err != nil {
		return nil, fmt.Errorf("ListingService.PendingDeletion: %w", err)
	}
	out := make([]model.PendingDeletion, 0, len(due))
	for _, l := range due {
		if l.LandlordID != landlordID {
			continue
		}
		out = append(out, model.PendingDeletion{
			ID:                  l.ID,
			Title:               l.Title,
			MarkedUnavailableAt: l.MarkedUnavailableAt,
			ScheduledDeletionAt: l.ScheduledDeletionAt,
		})
	}
	return out, nil
}

// AddPhoto stores an image for the listing, up to model.MaxListingImages.
func (s *ListingService) AddPhoto(ctx context.Context, id, actor primitive.ObjectID, filename string, src io.Reader) (string, error) {
	l, err := s.owned(ctx, id, actor, "modify")
	if err != nil {
		return "", err
	}
	if len(l.Images) >= model.MaxListingImages {
		return "", apperr.Validation("A listing can have at most %d photos", model.MaxListingImages)
	}
	photoID, err := s.photos.Upload(ctx, filename, src)
	if err != nil {
		return "", fmt.Errorf("ListingService.AddPhoto: %w", err)
	}
	if err := s.listings.AddImage(ctx, id, photoID, model.MaxListingImages); err != nil {
		_ = s.photos.Delete(ctx, photoID)
		if errors.Is(err, repository.ErrLimit) {
			return "", apperr.Validation("A listing can have at most %d photos", model.MaxListingImages)
		}
		return "", fmt.Errorf("ListingService.AddPhoto: %w", err)
	}
	return photoID, nil
}

// Photo returns the bytes of one of the listing's photos.
func (s *ListingService) Photo(ctx context.Context, id primitive.ObjectID, photoID string) ([]byte, error) {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Listing not found")
		}
		return nil, fmt.Errorf("ListingService.Photo: %w", err)
	}
	found := false
	for _, img := range l.Images {
		if img == photoID {
			found = true
			break
		}
	}
	if !found {
		return nil, apperr.NotFound("Photo not found")
	}
	data, err := s.photos.Download(ctx, photoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Photo not found")
		}
		return nil, fmt.Errorf("ListingService.Photo: %w", err)
	}
	return data, nil
}

func (s *ListingService) owned(ctx context.Context, id, actor primitive.ObjectID, verb string) (*model.Listing, error) {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Listing not found")
		}
		return nil, fmt.Errorf("ListingService: %w", err)
	}
	if l.LandlordID != actor {
		return nil, apperr.Forbidden("Not authorized to %s this listing", verb)
	}
	return l, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
