package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/geocoder89/rsvphub/internal/domain/event"
	"github.com/geocoder89/rsvphub/internal/domain/user"
	"github.com/geocoder89/rsvphub/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type eventDoc struct {
	ID          string    `bson:"_id"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Date        time.Time `bson:"date"`
	Location    string    `bson:"location"`
	Capacity    int       `bson:"capacity"`
	Images      []string  `bson:"images"`
	OrganizerID string    `bson:"organizer_id"`
	Attendees   []string  `bson:"attendees"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

// summaryDoc is the shape produced by the list pipeline.
type summaryDoc struct {
	ID             string    `bson:"_id"`
	Title          string    `bson:"title"`
	Date           time.Time `bson:"date"`
	Location       string    `bson:"location"`
	Capacity       int       `bson:"capacity"`
	Thumbnail      string    `bson:"thumbnail"`
	OrganizerID    string    `bson:"organizer_id"`
	AttendeesCount int       `bson:"attendees_count"`
	Organizer      []userDoc `bson:"organizer"`
}

// EventsRepo keeps each event, attendees included, in a single document so
// that JoinIfOpen is one atomic document update.
type EventsRepo struct {
	coll  *mongo.Collection
	users *mongo.Collection
	prom  *observability.Prom
}

func NewEventsRepo(db *mongo.Database, prom *observability.Prom) *EventsRepo {
	return &EventsRepo{
		coll:  db.Collection(eventsCollection),
		users: db.Collection(usersCollection),
		prom:  prom,
	}
}

func (r *EventsRepo) Create(ctx context.Context, e event.Event) (event.Event, error) {
	e.Attendees = []string{}
	if e.Images == nil {
		e.Images = []string{}
	}

	doc := eventDoc{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Date:        e.Date,
		Location:    e.Location,
		Capacity:    e.Capacity,
		Images:      e.Images,
		OrganizerID: e.OrganizerID,
		Attendees:   e.Attendees,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}

	err := r.prom.ObserveDB("events.create", func() error {
		_, err := r.coll.InsertOne(ctx, doc)
		return err
	})
	if err != nil {
		return event.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return e, nil
}

func (r *EventsRepo) List(ctx context.Context, filter event.ListEventsFilter) ([]event.Summary, error) {
	pipeline := mongo.Pipeline{}

	if filter.Search != nil && *filter.Search != "" {
		pattern := regexp.QuoteMeta(*filter.Search)
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"title": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"location": bson.M{"$regex": pattern, "$options": "i"}},
		}}}})
	}

	pipeline = append(pipeline,
		bson.D{{Key: "$sort", Value: bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}}}},
		bson.D{{Key: "$project", Value: bson.M{
			"title":           1,
			"date":            1,
			"location":        1,
			"capacity":        1,
			"organizer_id":    1,
			"thumbnail":       bson.M{"$ifNull": bson.A{bson.M{"$arrayElemAt": bson.A{"$images", 0}}, ""}},
			"attendees_count": bson.M{"$size": bson.M{"$ifNull": bson.A{"$attendees", bson.A{}}}},
		}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         usersCollection,
			"localField":   "organizer_id",
			"foreignField": "_id",
			"as":           "organizer",
		}}},
	)

	out := make([]event.Summary, 0)

	err := r.prom.ObserveDB("events.list", func() error {
		cur, err := r.coll.Aggregate(ctx, pipeline)
		if err != nil {
			return err
		}

		var docs []summaryDoc
		if err := cur.All(ctx, &docs); err != nil {
			return err
		}

		for _, d := range docs {
			s := event.Summary{
				ID:             d.ID,
				Title:          d.Title,
				Date:           d.Date.UTC(),
				Location:       d.Location,
				Capacity:       d.Capacity,
				Thumbnail:      d.Thumbnail,
				Organizer:      user.MinimalProfile{ID: d.OrganizerID},
				AttendeesCount: d.AttendeesCount,
			}
			if len(d.Organizer) > 0 {
				s.Organizer = d.Organizer[0].toUser().Minimal()
			}
			out = append(out, s)
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

func (r *EventsRepo) GetDetail(ctx context.Context, id string) (event.Detail, error) {
	var doc eventDoc
	var profiles map[string]userDoc

	err := r.prom.ObserveDB("events.get_detail", func() error {
		if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
			return err
		}

		ids := append([]string{doc.OrganizerID}, doc.Attendees...)
		var err error
		profiles, err = usersByID(ctx, r.users, ids)
		return err
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return event.Detail{}, event.ErrNotFound
		}
		return event.Detail{}, fmt.Errorf("get event: %w", err)
	}

	d := event.Detail{
		ID:             doc.ID,
		Title:          doc.Title,
		Description:    doc.Description,
		Date:           doc.Date.UTC(),
		Location:       doc.Location,
		Capacity:       doc.Capacity,
		Images:         doc.Images,
		Organizer:      user.PublicProfile{ID: doc.OrganizerID},
		Attendees:      make([]user.PublicProfile, 0, len(doc.Attendees)),
		AttendeesCount: len(doc.Attendees),
		CreatedAt:      doc.CreatedAt.UTC(),
		UpdatedAt:      doc.UpdatedAt.UTC(),
	}
	if d.Images == nil {
		d.Images = []string{}
	}

	if u, ok := profiles[doc.OrganizerID]; ok {
		d.Organizer = u.toUser().Public()
	}
	// keep RSVP order
	for _, uid := range doc.Attendees {
		if u, ok := profiles[uid]; ok {
			d.Attendees = append(d.Attendees, u.toUser().Public())
		}
	}

	return d, nil
}

func (r *EventsRepo) IsAttendee(ctx context.Context, eventID, userID string) (bool, error) {
	var doc struct {
		Attendees []string `bson:"attendees"`
	}

	err := r.prom.ObserveDB("events.is_attendee", func() error {
		return r.coll.FindOne(ctx,
			bson.M{"_id": eventID},
			options.FindOne().SetProjection(bson.M{"attendees": 1}),
		).Decode(&doc)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, event.ErrNotFound
		}
		return false, err
	}

	for _, id := range doc.Attendees {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

// JoinIfOpen matches the document only while the caller is absent and a
// seat is free, and pushes in the same single-document update.
func (r *EventsRepo) JoinIfOpen(ctx context.Context, eventID, userID string) (bool, error) {
	var matched int64

	err := r.prom.ObserveDB("events.join_if_open", func() error {
		res, err := r.coll.UpdateOne(ctx,
			bson.M{
				"_id":       eventID,
				"attendees": bson.M{"$ne": userID},
				"$expr":     bson.M{"$lt": bson.A{bson.M{"$size": "$attendees"}, "$capacity"}},
			},
			bson.M{
				"$push": bson.M{"attendees": userID},
				"$set":  bson.M{"updated_at": time.Now().UTC()},
			},
		)
		if err != nil {
			return err
		}
		matched = res.ModifiedCount
		return nil
	})

	if err != nil {
		return false, err
	}
	return matched == 1, nil
}

func (r *EventsRepo) DeleteOwned(ctx context.Context, id, organizerID string) error {
	var deleted int64

	err := r.prom.ObserveDB("events.delete_owned", func() error {
		res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "organizer_id": organizerID})
		if err != nil {
			return err
		}
		deleted = res.DeletedCount
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if deleted > 0 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("check event: %w", err)
	}
	if n == 0 {
		return event.ErrNotFound
	}
	return event.ErrNotOrganizer
}

func (r *EventsRepo) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}
