package notation

import "context"

// Sample is a named example notation.
type Sample struct {
	Name     string
	Notation string
}

// Samples are the demo notations: a cyclic peptide, the same peptide family
// in HELM2, a peptide-chem conjugate, an RNA conjugate with an inline SMILES
// linker, and a notation with an unknown monomer.
var Samples = []Sample{
	{"cyclic peptide", "PEPTIDE1{A.A.C.G.K.[dK].C.H.A}$PEPTIDE1,PEPTIDE1,3:R3-7:R3$$$"},
	{"helm2 peptide", "PEPTIDE1{A.A.C.G.[dK].E.C.H.A}$PEPTIDE1,PEPTIDE1,3:R3-7:R3$$$V2.0"},
	{"peptide conjugate", "PEPTIDE1{A.G.G.G.[seC].C.K.K.K.K}|CHEM1{MCC}$PEPTIDE1,CHEM1,9:R3-1:R1$$$"},
	{"rna with inline linker", "RNA1{R(A)P.[mR](A)P}|CHEM1{[*]OCCOCCOCCO[*] |$_R1;;;;;;;;;;;_R3$|}$RNA1,CHEM1,6:R2-1:R1$$$"},
	{"unknown monomer", "PEPTIDE1{A.A.C.G.[dK].[xyz].E.C.H.A}$$$$"},
}

// Demo analyses every sample. A failing sample is reported in its own
// report and does not stop the others.
func (s *serviceImpl) Demo(ctx context.Context) ([]*AnalysisReport, error) {
	out := make([]*AnalysisReport, 0, len(Samples))
	for _, sample := range Samples {
		r, err := s.Analyze(ctx, sample.Notation, AnalyzeOptions{Name: sample.Name, NoCache: true})
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}
