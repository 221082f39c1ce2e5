// Package namematch selects the file that best corresponds to a human-entered
// speaker name.
//
// Names and filenames are folded with textutil.AlphaNum and compared with a
// fixed ladder of substring rules:
//
//	100  full name (all tokens concatenated) appears in the filename
//	 90  first and last token both appear
//	 85  last token appears and a 4+ character prefix of the first token appears
//	 80  first or last token appears alone (longer token preferred)
//	 60  6-character prefix of the first or last token appears
//	 40  4-character prefix of a 5+ character first or last token appears
//	  0  no match
//
// Every candidate is scored; the winner maximizes (score, specificity) and
// ties go to the candidate listed first. That tie-break depends on the order
// the caller supplies candidates in (usually directory listing order) and
// carries no meaning of its own.
//
// Only the base name of each candidate path is inspected and no file system
// access is performed.
package namematch
