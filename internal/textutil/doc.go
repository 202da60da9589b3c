// Package textutil provides title normalization shared by catalog
// deduplication, blacklist checks and candidate file matching.
//
// Normalize produces the key under which two differently written titles of the
// same work collide ("Pelíšky" and "PELISKY: 1999" both become "pelisky").
// RemoveDiacritics is the lighter transform used when comparing keywords
// against file names.
package textutil
