package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"roomcal/internal/model"
)

// eventDoc is the stored shape of an event. Date holds midnight of the
// event's day in the deployment's timezone, the instant browsers have
// always posted, so it is read back in that same zone.
type eventDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Date        time.Time          `bson:"date"`
	StartTime   string             `bson:"startTime,omitempty"`
	EndTime     string             `bson:"endTime,omitempty"`
	Description string             `bson:"description,omitempty"`
	Color       string             `bson:"color"`
	RoomID      int                `bson:"roomId"`
}

func eventDocFrom(ev model.Event, loc *time.Location) eventDoc {
	return eventDoc{
		Title:       ev.Title,
		Date:        ev.Date.In(loc),
		StartTime:   ev.StartTime,
		EndTime:     ev.EndTime,
		Description: ev.Description,
		Color:       ev.Color,
		RoomID:      ev.RoomID,
	}
}

func (d eventDoc) toModel(loc *time.Location) model.Event {
	if loc == nil {
		loc = time.UTC
	}
	return model.Event{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Date:        model.DateOf(d.Date.In(loc)),
		StartTime:   d.StartTime,
		EndTime:     d.EndTime,
		Description: d.Description,
		Color:       d.Color,
		RoomID:      d.RoomID,
	}
}

// updateDoc builds the $set document for the fields present in in.
func updateDoc(in model.EventInput, loc *time.Location) bson.M {
	set := bson.M{}
	if in.Title != nil {
		set["title"] = *in.Title
	}
	if in.Date != nil {
		set["date"] = in.Date.In(loc)
	}
	if in.StartTime != nil {
		set["startTime"] = *in.StartTime
	}
	if in.EndTime != nil {
		set["endTime"] = *in.EndTime
	}
	if in.Description != nil {
		set["description"] = *in.Description
	}
	if in.Color != nil {
		set["color"] = *in.Color
	}
	if in.RoomID != nil {
		set["roomId"] = *in.RoomID
	}
	return set
}

type userDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	GoogleID       string             `bson:"googleId"`
	Email          string             `bson:"email"`
	DisplayName    string             `bson:"displayName"`
	ProfilePicture string             `bson:"profilePicture,omitempty"`
}

func userDocFrom(u model.User) userDoc {
	return userDoc{
		GoogleID:       u.GoogleID,
		Email:          u.Email,
		DisplayName:    u.DisplayName,
		ProfilePicture: u.ProfilePicture,
	}
}

func (d userDoc) toModel() model.User {
	return model.User{
		ID:             d.ID.Hex(),
		GoogleID:       d.GoogleID,
		Email:          d.Email,
		DisplayName:    d.DisplayName,
		ProfilePicture: d.ProfilePicture,
	}
}
