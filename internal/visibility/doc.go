// Package visibility decides which items a principal may see and writes the visible ones.
//
// A Checker answers "can the principal in ctx see this item". Checkers get the item by
// value and return owned results, so nothing a checker does can hold on to, or be
// invalidated by, the caller's collection.
//
// Write walks a sequence of items strictly in order, one outstanding check at a time.
// Hidden items are skipped; the first check error ends the walk and is returned as is.
package visibility
