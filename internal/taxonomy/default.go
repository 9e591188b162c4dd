package taxonomy

var defaultTaxonomy = MustNew(Spec{
	Symptoms: []SymptomPattern{
		{
			Name:     "pain_level",
			Keywords: []string{"pain", "hurt", "ache", "aching", "sore"},
			Mode:     ModeNumeric,
		},
		{
			Name:     "stiffness_level",
			Keywords: []string{"stiff", "stiffness", "rigid"},
			Mode:     ModeNumeric,
		},
		{
			Name:     "hand_grip",
			Keywords: []string{"grip", "grasp", "hand strength", "holding things"},
			Mode:     ModeCategorical,
			Categories: []Category{
				{Name: "bad", Keywords: []string{"bad", "terrible", "poor", "weak", "awful", "dropping"}},
				{Name: "moderate", Keywords: []string{"moderate", "okay", "fair", "so-so", "average"}},
				{Name: "good", Keywords: []string{"good", "strong", "great", "fine", "normal"}},
			},
		},
		{
			Name:     "energy",
			Keywords: []string{"energy", "tired", "fatigue", "fatigued", "exhausted", "drained", "energetic"},
			Mode:     ModeCategorical,
			Categories: []Category{
				{Name: "low", Keywords: []string{"tired", "exhausted", "fatigue", "drained", "low energy", "no energy", "wiped out"}},
				{Name: "moderate", Keywords: []string{"some energy", "okay", "moderate", "so-so"}},
				{Name: "high", Keywords: []string{"energetic", "high energy", "lots of energy", "full of energy"}},
			},
		},
		{
			Name:     "sleep_quality",
			Keywords: []string{"sleep", "slept", "insomnia", "woke up"},
			Mode:     ModeCategorical,
			Categories: []Category{
				{Name: "bad", Keywords: []string{"bad", "terrible", "poor", "barely", "insomnia", "restless"}},
				{Name: "moderate", Keywords: []string{"okay", "fair", "average", "so-so"}},
				{Name: "good", Keywords: []string{"good", "well", "great", "rested", "solid"}},
			},
		},
		{
			Name:     "mood",
			Keywords: []string{"mood", "anxious", "depressed", "irritable", "cheerful"},
			Mode:     ModeCategorical,
			Categories: []Category{
				{Name: "low", Keywords: []string{"low", "down", "depressed", "sad", "anxious", "irritable"}},
				{Name: "neutral", Keywords: []string{"okay", "neutral", "fine", "stable"}},
				{Name: "good", Keywords: []string{"good", "happy", "great", "positive", "cheerful"}},
			},
		},
		{
			Name:     "raynauds_event",
			Keywords: []string{"raynaud", "fingers turned white", "fingers turned blue", "fingers went white", "fingers went numb"},
			Mode:     ModeBoolean,
		},
		{
			Name:     "swelling",
			Keywords: []string{"swelling", "swollen", "puffy", "puffiness"},
			Mode:     ModeBoolean,
		},
		{
			Name:     "headache",
			Keywords: []string{"headache", "migraine"},
			Mode:     ModeBoolean,
		},
		{
			Name:     "nausea",
			Keywords: []string{"nausea", "nauseous", "queasy", "sick to my stomach"},
			Mode:     ModeBoolean,
		},
		{
			Name:     "rash",
			Keywords: []string{"rash", "hives", "itchy skin", "skin flare"},
			Mode:     ModeBoolean,
		},
		{
			Name:     "brain_fog",
			Keywords: []string{"brain fog", "foggy", "can't concentrate", "cannot concentrate", "forgetful"},
			Mode:     ModeBoolean,
		},
		{
			Name:     "dizziness",
			Keywords: []string{"dizzy", "dizziness", "lightheaded", "light-headed", "vertigo"},
			Mode:     ModeBoolean,
		},
		{
			Name:     "shortness_of_breath",
			Keywords: []string{"short of breath", "shortness of breath", "breathless", "winded"},
			Mode:     ModeBoolean,
		},
	},
	Activities: []string{
		"walk", "walking", "run", "running", "swim", "swimming", "yoga", "stretching",
		"gym", "cycling", "biking", "gardening", "cleaning", "cooking", "typing",
		"shopping", "physical therapy", "housework",
	},
	Triggers: []string{
		"stress", "cold", "weather", "rain", "humidity", "alcohol", "caffeine", "coffee",
		"sugar", "dairy", "gluten", "poor sleep", "travel", "argument", "deadline",
		"overexertion",
	},
})

// Default returns the built-in taxonomy
func Default() *Taxonomy {
	return defaultTaxonomy
}
