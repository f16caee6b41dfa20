package models

import (
	"time"

	"github.com/globalsign/mgo/bson"
)

const (
	TodoTable MongoDbCollection = "todos"
)

type TodoEntry struct {
	ID        bson.ObjectId `bson:"_id,omitempty"`
	UserID    string
	Text      string
	Done      bool
	CreatedAt time.Time
	DoneAt    time.Time
}
