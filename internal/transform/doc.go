// Package transform reshapes raw CSV datasets into the normalized rows of each
// destination table. Every function reads one raw file and returns either the
// full normalized dataset or an error with an empty dataset; there are no
// partial results.
package transform
