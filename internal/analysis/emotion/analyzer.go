package emotion

import "strings"

// Label names an emotion a character asset can express.
type Label string

const (
	Neutral Label = "neutral"
	Joy     Label = "joy"
	Sadness Label = "sadness"
	Anger   Label = "anger"
	Fear    Label = "fear"
	Disgust Label = "disgust"
	Anxiety Label = "anxiety"
	Calm    Label = "calm"
	Excited Label = "excited"
)

// priority fixes tie-breaking: the first label declared here wins when
// two buckets score equally.
var priority = []Label{Joy, Sadness, Anger, Fear, Disgust, Anxiety, Calm, Excited}

// Decision carries the classification outcome and its raw keyword score.
type Decision struct {
	Emotion Label
	Score   int
}

var keywordBuckets = map[Label][]string{
	Joy: {
		"happy", "glad", "joy", "delighted", "wonderful", "great", "awesome",
		"amazing", "love", "fantastic", "thank", "haha", "lol", "yay", "nice",
	},
	Sadness: {
		"sad", "unhappy", "cry", "depressed", "miserable", "lonely", "miss you",
		"heartbroken", "down", "gloomy", "upset", "hurt", "sorrow",
	},
	Anger: {
		"angry", "mad", "furious", "annoyed", "hate", "rage", "pissed",
		"fed up", "outrage", "irritated",
	},
	Fear: {
		"scared", "afraid", "terrified", "frightened", "spooky", "creepy",
		"horror", "panic",
	},
	Disgust: {
		"disgusting", "gross", "yuck", "ew", "nasty", "revolting", "sick of",
	},
	Anxiety: {
		"anxious", "nervous", "worried", "stress", "overwhelmed", "uneasy",
		"can't sleep", "restless",
	},
	Calm: {
		"calm", "relaxed", "peaceful", "quiet", "serene", "breathe", "gentle",
		"rest", "meditate",
	},
	Excited: {
		"excited", "can't wait", "thrilled", "hype", "incredible", "wow",
		"let's go", "pumped",
	},
}

// exclamation marks lean the result toward the energetic labels.
var punctuationBoost = map[Label]int{
	Joy:     2,
	Excited: 3,
}

// Classify infers the emotion of a turn from the user utterance and the
// generated reply. The reply dominates; the user text breaks silence.
func Classify(userText, replyText string) Decision {
	combined := scoreText(userText + " " + replyText)
	if combined.Score == 0 {
		return Decision{Emotion: Neutral, Score: 0}
	}
	return combined
}

func scoreText(text string) Decision {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return Decision{Emotion: Neutral, Score: 0}
	}

	scores := make(map[Label]int)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(normalized, word) {
				scores[label] += 3
			}
		}
	}

	if exclamations := strings.Count(text, "!"); exclamations > 0 {
		scores[Excited] += exclamations * punctuationBoost[Excited]
		if exclamations == 1 {
			scores[Joy] += punctuationBoost[Joy]
		}
	}

	best := Neutral
	bestScore := 0
	for _, label := range priority {
		if s := scores[label]; s > bestScore {
			bestScore = s
			best = label
		}
	}

	return Decision{Emotion: best, Score: bestScore}
}

// All returns every known label, priority order first, neutral last.
func All() []Label {
	out := append([]Label(nil), priority...)
	return append(out, Neutral)
}

// aliases maps filename/keyword tokens onto canonical labels, used when
// indexing standard assets and stripping emotion words from descriptions.
var aliases = map[string]Label{
	"neutral": Neutral, "joy": Joy, "happy": Joy, "happiness": Joy,
	"sad": Sadness, "sadness": Sadness, "anger": Anger, "angry": Anger,
	"fear": Fear, "scared": Fear, "afraid": Fear,
	"disgust": Disgust, "disgusted": Disgust,
	"anxiety": Anxiety, "anxious": Anxiety, "nervous": Anxiety,
	"calm": Calm, "peaceful": Calm, "relaxed": Calm,
	"excited": Excited, "excitement": Excited,
}

// Canonical resolves a single token to its label, if it names one.
func Canonical(token string) (Label, bool) {
	label, ok := aliases[strings.ToLower(strings.TrimSpace(token))]
	return label, ok
}
