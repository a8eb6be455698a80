// package models defines the data model for card playlists, icons, and queued jobs.
//
// Card, Chapter, and Track mirror the JSON document shapes of the content
// service. Job and its payload variants form a closed sum type consumed by
// the queue package.
package models
