// package cache persists the icon catalog and its embeddings between runs.
package cache
