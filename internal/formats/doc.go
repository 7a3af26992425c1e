// Package formats routes a dumped card to the transit format that claims it.
//
// Ownership boundary:
// - the Format contract every decoder implements
// - the ordered Registry and first-match classification
// - the shared result shapes (Identity, Result, Trip)
//
// Concrete decoders live in subpackages and are assembled in precedence
// order by formats/builtin.
package formats
