// package services implements the HTTP collaborators: the content API client
// (playlists, icons, uploads) and the OpenAI-compatible AI client
// (embeddings, chat completions).
//
// Both clients are defined behind interfaces so the queue and mapper can be
// tested against doubles.
package services
