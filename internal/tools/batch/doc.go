// Package batch lets a tool accept one ID or many and report per-item
// outcomes, so a single failed deletion never hides the others.
package batch
