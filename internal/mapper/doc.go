// package mapper assigns display icons to playlist chapters by combining
// embedding similarity with chat-model arbitration.
package mapper
