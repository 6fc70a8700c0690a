package chem

// Element holds the mass data needed for formula and weight computation.
type Element struct {
	Symbol           string
	AtomicNumber     int
	AverageMass      float64
	MonoisotopicMass float64
}

var hydrogen = Element{Symbol: "H", AtomicNumber: 1, AverageMass: 1.00794, MonoisotopicMass: 1.00782503207}

var elements = map[string]Element{
	"H":  hydrogen,
	"B":  {Symbol: "B", AtomicNumber: 5, AverageMass: 10.811, MonoisotopicMass: 11.0093054},
	"C":  {Symbol: "C", AtomicNumber: 6, AverageMass: 12.0107, MonoisotopicMass: 12.0},
	"N":  {Symbol: "N", AtomicNumber: 7, AverageMass: 14.0067, MonoisotopicMass: 14.0030740048},
	"O":  {Symbol: "O", AtomicNumber: 8, AverageMass: 15.9994, MonoisotopicMass: 15.99491461956},
	"F":  {Symbol: "F", AtomicNumber: 9, AverageMass: 18.9984032, MonoisotopicMass: 18.99840322},
	"Na": {Symbol: "Na", AtomicNumber: 11, AverageMass: 22.98976928, MonoisotopicMass: 22.9897692809},
	"Si": {Symbol: "Si", AtomicNumber: 14, AverageMass: 28.0855, MonoisotopicMass: 27.9769265325},
	"P":  {Symbol: "P", AtomicNumber: 15, AverageMass: 30.973762, MonoisotopicMass: 30.97376163},
	"S":  {Symbol: "S", AtomicNumber: 16, AverageMass: 32.065, MonoisotopicMass: 31.97207100},
	"Cl": {Symbol: "Cl", AtomicNumber: 17, AverageMass: 35.453, MonoisotopicMass: 34.96885268},
	"K":  {Symbol: "K", AtomicNumber: 19, AverageMass: 39.0983, MonoisotopicMass: 38.96370668},
	"Se": {Symbol: "Se", AtomicNumber: 34, AverageMass: 78.96, MonoisotopicMass: 79.9165213},
	"Br": {Symbol: "Br", AtomicNumber: 35, AverageMass: 79.904, MonoisotopicMass: 78.9183371},
	"I":  {Symbol: "I", AtomicNumber: 53, AverageMass: 126.90447, MonoisotopicMass: 126.904473},
}

// LookupElement returns the element data for symbol.
func LookupElement(symbol string) (Element, bool) {
	e, ok := elements[symbol]
	return e, ok
}

// organicValences lists the allowed valences of the SMILES organic subset in
// ascending order. Implicit hydrogens fill up to the lowest valence that is
// not below the explicit bond order sum.
var organicValences = map[string][]int{
	"B":  {3},
	"C":  {4},
	"N":  {3, 5},
	"O":  {2},
	"P":  {3, 5},
	"S":  {2, 4, 6},
	"F":  {1},
	"Cl": {1},
	"Br": {1},
	"I":  {1},
	"*":  {0},
}

// aromaticSymbols are the lowercase atoms accepted outside brackets.
var aromaticSymbols = map[string]string{
	"b": "B", "c": "C", "n": "N", "o": "O", "p": "P", "s": "S",
}

// bracketAromaticSymbols may only appear inside brackets.
var bracketAromaticSymbols = map[string]string{
	"se": "Se",
}
