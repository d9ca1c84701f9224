package services

import "tornado_server/models"

// ChangeFeed fans lifecycle writes out to subscribed clients. The socket
// package implements it over socket.io rooms keyed by matchId; clients learn
// about status transitions and message inserts without polling.
type ChangeFeed interface {
	MatchUpdated(match models.Match)
	MessageCreated(message models.Message)
}
