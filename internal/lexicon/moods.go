package lexicon

import "regexp"

type Mood int

const (
	MoodFeelGood Mood = iota
	MoodFamilyNight
	MoodTimePass
	MoodSadEnding
	MoodRomantic
	MoodInvestigative
	MoodRealBased
	MoodSuperhero
	MoodDark
	MoodPsychological
	MoodTwisty
	MoodHorror
	MoodNotTooScary
	MoodActionThriller
)

var moodPatterns = map[Mood]*regexp.Regexp{
	MoodFeelGood:       regexp.MustCompile(`(?i)feel\s*-?\s*good|relax(ing)?|chill( weekend| mood)?|rainy( day| evening)?|sunday\s*(mood|feel)|mood\s*booster|peaceful`),
	MoodFamilyNight:    regexp.MustCompile(`(?i)family( movie)?\s*night|watch with family|family\s*suspense`),
	MoodTimePass:       regexp.MustCompile(`(?i)time\s*pass|fun entertainer|laughter dose|full comedy`),
	MoodSadEnding:      regexp.MustCompile(`(?i)sad( (movie|film))?(\s*to\s*cry)?|heartbreak( story| healing)?|tear\s*jerker|tragic|shocking\s*ending`),
	MoodRomantic:       regexp.MustCompile(`(?i)romance|romantic( comedy| drama| mood)?|love( story| triangle)?|couples( night| movie)?|cute`),
	MoodInvestigative:  regexp.MustCompile(`(?i)investigation|detective|police|cop|courtroom|serial\s*killer|murder\s*mystery|crime\s*drama|true\s*crime`),
	MoodRealBased:      regexp.MustCompile(`(?i)real(istic)?( acting| story)?|based on true|true\s*story|biopic|biography|real life|inspirational`),
	MoodSuperhero:      superheroPattern,
	MoodDark:           regexp.MustCompile(`(?i)dark( theme| emotional)?|noir`),
	MoodPsychological:  regexp.MustCompile(`(?i)psychological|mind\s*game`),
	MoodTwisty:         regexp.MustCompile(`(?i)twist(y)?|unpredictable|shocking\s*ending|mind\s*blow(ing)?`),
	MoodHorror:         regexp.MustCompile(`(?i)horror|ghost|haunted|supernatural`),
	MoodNotTooScary:    regexp.MustCompile(`(?i)not\s*too\s*scary`),
	MoodActionThriller: regexp.MustCompile(`(?i)action(\s*\+\s*emotion|\s*thriller)?|thriller(\s*\+\s*romance)?|edge[-\s]?of[-\s]?seat|intense`),
}

var superheroPattern = regexp.MustCompile(`(?i)avengers?|marvel|\bdc\b|super\s*man|batman|spider-?man|iron\s*man|wolverine|deadpool`)

// MatchMood reports whether text carries the mood.
func MatchMood(mood Mood, text string) bool {
	pattern, ok := moodPatterns[mood]
	if !ok {
		return false
	}
	return pattern.MatchString(text)
}

// Superheroish reports whether text names a superhero franchise.
func Superheroish(text string) bool {
	return superheroPattern.MatchString(text)
}

// TokenPattern pairs a keyword with the pattern that emits it.
type TokenPattern struct {
	Token   string
	Pattern *regexp.Regexp
}

var keywordPatterns = []TokenPattern{
	{"slow burn", regexp.MustCompile(`(?i)slow\s*burn`)},
	{"heist", regexp.MustCompile(`(?i)heist`)},
	{"mystery", regexp.MustCompile(`(?i)mystery`)},
	{"revenge", regexp.MustCompile(`(?i)revenge`)},
	{"investigation", regexp.MustCompile(`(?i)investigation|detective|investigative`)},
	{"family", regexp.MustCompile(`(?i)family`)},
	{"noir", regexp.MustCompile(`(?i)noir`)},
	{"psychological", regexp.MustCompile(`(?i)psychological`)},
	{"realistic", regexp.MustCompile(`(?i)real(istic)?|true\s*story`)},
	{"emotional", regexp.MustCompile(`(?i)emotional`)},
	{"twist", regexp.MustCompile(`(?i)twist|plot\s*twist|twist\s*ending`)},
	{"clever", regexp.MustCompile(`(?i)\bsmart|brainy|clever|mind\s*game`)},
	{"edge-of-seat", regexp.MustCompile(`(?i)\bedge[-\s]?of[-\s]?seat|edge of the seat`)},
	{"suspense", regexp.MustCompile(`(?i)suspense|suspenseful`)},
	{"serial killer", regexp.MustCompile(`(?i)serial\s*killer`)},
	{"courtroom", regexp.MustCompile(`(?i)courtroom`)},
}

// segmentPatterns apply to each comma or plus separated segment.
var segmentPatterns = []TokenPattern{
	{"thriller", regexp.MustCompile(`\b(thrill|thriller)\b`)},
	{"action", regexp.MustCompile(`\b(action|shootout|chase)\b`)},
	{"drama", regexp.MustCompile(`\b(drama|family|emotional)\b`)},
	{"mystery", regexp.MustCompile(`\b(mystery|investigation|detective)\b`)},
	{"crime", regexp.MustCompile(`\b(crime|police|cop|mafia|gangster|courtroom|justice)\b`)},
	{"noir", regexp.MustCompile(`\b(noir|dark)\b`)},
	{"comedy", regexp.MustCompile(`\b(comedy)\b`)},
	{"romance", regexp.MustCompile(`\b(romance|romantic|love)\b`)},
	{"realistic", regexp.MustCompile(`\b(real|realistic|true\s*story|based\s*on\s*true)\b`)},
}

// KeywordPatterns returns the whole-prompt keyword table in scan order.
func KeywordPatterns() []TokenPattern {
	return append([]TokenPattern(nil), keywordPatterns...)
}

// SegmentPatterns returns the per-segment keyword table. Segments are
// expected lowercased.
func SegmentPatterns() []TokenPattern {
	return append([]TokenPattern(nil), segmentPatterns...)
}
