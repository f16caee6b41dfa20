package models

import "time"

type Rest_Guild struct {
	ID        string
	Name      string
	Icon      string
	OwnerID   string
	BotPrefix string
}

type Rest_Ticket struct {
	ID           string
	TicketNumber int
	OwnerID      string
	Status       string
	ClosedBy     string
	Category     string
	Rating       int
	Resolution   string
	CreatedAt    time.Time
	ClosedAt     time.Time
}

type Rest_Punishment struct {
	GuildID       string
	UserID        string
	Verdict       string
	PunishedUntil time.Time
}

type Rest_Status struct {
	Version string
	Uptime  time.Time
	Guilds  int
}
