package models

// MongoDbCollection is the name of a mongodb collection used by the bot
type MongoDbCollection string

func (m MongoDbCollection) String() string {
	return string(m)
}
