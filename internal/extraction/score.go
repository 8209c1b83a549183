package extraction

// Confidence contributions. Each signal adds to the running score, which is
// clamped to [0,1].
const (
	confidenceFailed   = 0.1
	confidenceFilename = 0.2
	confidenceEbook    = 0.4
	confidenceOCRBase  = 0.1

	bonusTitle  = 0.2
	bonusAuthor = 0.2
	bonusYear   = 0.1
	bonusISBN   = 0.3

	bonusConvertText = 0.3
	bonusOCRText     = 0.4

	bonusEnrichBasic   = 0.5
	bonusEnrichMeta    = 0.4
	bonusEnrichConvert = 0.4
	bonusEnrichOCR     = 0.2

	minConvertTextChars = 100
	minOCRTextChars     = 50

	minPlausibleYear = 1900
)

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
