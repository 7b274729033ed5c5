// Package calendar walks (year, month) periods forward from an anchor.
//
// Horizons are anchor-inclusive: Expand(anchor, 3) yields the anchor and the
// two months that follow it. Nothing in the package reads the wall clock
// unless the caller asks for Current.
package calendar
