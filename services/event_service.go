package services

import (
	"regexp"
	"strings"

	"github.com/atelierlumen/gallerybackend/apperrors"
	"github.com/atelierlumen/gallerybackend/models"
	"github.com/atelierlumen/gallerybackend/repository"
)

var (
	slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	slugStrip    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces   = regexp.MustCompile(`\s+`)
	slugCollapse = regexp.MustCompile(`-+`)
)

// EventService manages the event grouping of image instances.
type EventService struct {
	Events repository.EventRepositoryInterface
	Images repository.ImageRepositoryInterface
}

func NewEventService(events repository.EventRepositoryInterface, images repository.ImageRepositoryInterface) *EventService {
	return &EventService{Events: events, Images: images}
}

// Slugify derives a URL slug from an event name.
func Slugify(name string) string {
	s := strings.TrimSpace(strings.ToLower(name))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	return slugCollapse.ReplaceAllString(s, "-")
}

// Create registers a new event; a missing slug is derived from the name.
func (s *EventService) Create(name, slug, date, location string, isPublic bool) (*models.Event, error) {
	if name == "" || date == "" {
		return nil, apperrors.Validationf("name and date required")
	}
	if !datePattern.MatchString(date) {
		return nil, apperrors.Validationf("date must be YYYY-MM-DD")
	}
	if slug == "" {
		slug = Slugify(name)
	}
	if !slugPattern.MatchString(slug) {
		return nil, apperrors.Validationf("invalid slug %q", slug)
	}

	if _, err := s.Events.GetBySlug(slug); err == nil {
		return nil, apperrors.Conflictf("event slug %q already exists", slug)
	} else if !notFound(err) {
		return nil, err
	}

	event := &models.Event{Name: name, Slug: slug, Date: date, Location: location, IsPublic: isPublic}
	if err := s.Events.Create(event); err != nil {
		return nil, err
	}
	return event, nil
}

// Get returns an event by id.
func (s *EventService) Get(id uint) (*models.Event, error) {
	event, err := s.Events.GetByID(id)
	if err != nil {
		if notFound(err) {
			return nil, apperrors.NotFoundf("event %d not found", id)
		}
		return nil, err
	}
	return event, nil
}

// GetBySlug returns an event by its slug.
func (s *EventService) GetBySlug(slug string) (*models.Event, error) {
	event, err := s.Events.GetBySlug(slug)
	if err != nil {
		if notFound(err) {
			return nil, apperrors.NotFoundf("event %q not found", slug)
		}
		return nil, err
	}
	return event, nil
}

// List returns all events.
func (s *EventService) List() ([]models.Event, error) {
	return s.Events.ListAll()
}

// Update patches event fields; nil pointers are left unchanged.
func (s *EventService) Update(id uint, name, date, location *string, isPublic *bool) (*models.Event, error) {
	event, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		if *name == "" {
			return nil, apperrors.Validationf("name must not be empty")
		}
		event.Name = *name
	}
	if date != nil {
		if !datePattern.MatchString(*date) {
			return nil, apperrors.Validationf("date must be YYYY-MM-DD")
		}
		event.Date = *date
	}
	if location != nil {
		event.Location = *location
	}
	if isPublic != nil {
		event.IsPublic = *isPublic
	}
	if err := s.Events.Update(event); err != nil {
		return nil, err
	}
	return event, nil
}

// Delete removes an event together with its image memberships. The
// instances themselves survive; only the grouping goes away.
func (s *EventService) Delete(id uint) error {
	if err := s.Events.Delete(id); err != nil {
		if notFound(err) {
			return apperrors.NotFoundf("event %d not found", id)
		}
		return err
	}
	return nil
}

// AddImage attaches an instance to an event, optionally promoting it to
// the event's cover. The instance must exist in the events context.
func (s *EventService) AddImage(eventID, instanceID uint, asCover bool) error {
	if _, err := s.Get(eventID); err != nil {
		return err
	}
	instance, err := s.Images.GetInstanceByID(instanceID)
	if err != nil {
		if notFound(err) {
			return apperrors.NotFoundf("image %d not found", instanceID)
		}
		return err
	}
	if instance.Context != string(models.ContextEvents) {
		return apperrors.Validationf("image %d is not in the events context", instanceID)
	}

	if err := s.Events.AddImage(&models.EventImage{ImageInstanceID: instanceID, EventID: eventID}); err != nil {
		return apperrors.Conflictf("image %d is already attached to an event", instanceID)
	}

	if asCover {
		return s.Events.SetCover(eventID, &instanceID)
	}
	return nil
}

// RemoveImage detaches an instance from an event, clearing the cover if
// it pointed at the detached instance.
func (s *EventService) RemoveImage(eventID, instanceID uint) error {
	event, err := s.Get(eventID)
	if err != nil {
		return err
	}
	if err := s.Events.RemoveImage(instanceID); err != nil {
		if notFound(err) {
			return apperrors.NotFoundf("image %d is not attached to event %d", instanceID, eventID)
		}
		return err
	}
	if event.CoverInstanceID != nil && *event.CoverInstanceID == instanceID {
		return s.Events.SetCover(eventID, nil)
	}
	return nil
}
