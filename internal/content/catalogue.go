package content

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"quranverse-quiz-service/internal/domain"
)

const fallbackTopic = "water"

// Catalogue generates quizzes from a fixed topic dictionary covering the
// random and daily topics. Unknown topics fall back to the water quiz.
type Catalogue struct {
	topics map[string]domain.Quiz
	clock  func() time.Time
}

// NewCatalogue returns the built-in catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{topics: builtinTopics(), clock: time.Now}
}

// GenerateQuiz returns up to req.QuestionCount questions on the topic.
func (c *Catalogue) GenerateQuiz(_ context.Context, req domain.GenerateRequest) (domain.Quiz, error) {
	if err := req.Validate(); err != nil {
		return domain.Quiz{}, err
	}

	base, ok := c.topics[strings.ToLower(strings.TrimSpace(req.Topic))]
	if !ok {
		base = c.topics[fallbackTopic]
	}

	count := req.QuestionCount
	if count > len(base.Questions) {
		count = len(base.Questions)
	}
	questions := append([]domain.Question{}, base.Questions[:count]...)

	quiz := base
	quiz.ID = uuid.NewString()
	quiz.Topic = req.Topic
	quiz.Difficulty = req.Difficulty
	quiz.Questions = questions
	quiz.Points = totalPoints(questions)
	quiz.CreatedAt = c.clock()
	return quiz, nil
}

func totalPoints(questions []domain.Question) int {
	sum := 0
	for _, q := range questions {
		sum += q.Points
	}
	return sum
}

func builtinTopics() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"water": {
			Title:       "Water in the Quran",
			Description: "Explore what the Quran teaches about water and its importance",
			Category:    "Science & Quran",
			Questions: []domain.Question{
				{
					ID:            "1",
					Prompt:        "According to the Quran, what is made from water?",
					Options:       []string{"Only plants", "Only animals", "Every living thing", "Only humans"},
					CorrectAnswer: 2,
					Explanation:   `Allah says in Surah Al-Anbiya (21:30): "And We made from water every living thing."`,
					Verse: &domain.Verse{
						Arabic:      "وَجَعَلْنَا مِنَ الْمَاءِ كُلَّ شَيْءٍ حَيٍّ",
						Translation: "And We made from water every living thing",
						Reference:   "Al-Anbiya 21:30",
					},
					Points: 10,
				},
				{
					ID:            "2",
					Prompt:        "What does the Quran say about rain from the sky?",
					Options:       []string{"It is pure water", "It is salty water", "It is contaminated", "It is just ordinary water"},
					CorrectAnswer: 0,
					Explanation:   `Allah describes rain as "pure water" (ma'an tahuran) in Surah Al-Furqan.`,
					Verse: &domain.Verse{
						Arabic:      "وَأَنزَلْنَا مِنَ السَّمَاءِ مَاءً طَهُورًا",
						Translation: "And We send down from the sky pure water",
						Reference:   "Al-Furqan 25:48",
					},
					Points: 10,
				},
			},
		},
		"mountains": {
			Title:       "Mountains in Islamic Perspective",
			Description: "Learn about the Quranic view of mountains and their purpose",
			Category:    "Geography & Quran",
			Questions: []domain.Question{
				{
					ID:            "1",
					Prompt:        "What does the Quran say about the function of mountains?",
					Options:       []string{"They are just decorations", "They stabilize the earth", "They block the view", "They have no purpose"},
					CorrectAnswer: 1,
					Explanation:   `The Quran describes mountains as "stakes" or "pegs" that stabilize the earth.`,
					Verse: &domain.Verse{
						Arabic:      "وَالْجِبَالَ أَوْتَادًا",
						Translation: "And the mountains as stakes",
						Reference:   "An-Naba 78:7",
					},
					Points: 10,
				},
			},
		},
		"science": {
			Title:       "Creation and the Cosmos",
			Description: "Reflect on the signs of creation described in the Quran",
			Category:    "Science & Quran",
			Questions: []domain.Question{
				{
					ID:            "1",
					Prompt:        "How does the Quran describe the heavens and the earth before they were separated?",
					Options:       []string{"As a joined entity", "As always apart", "As made of fire", "As empty space"},
					CorrectAnswer: 0,
					Explanation:   `Surah Al-Anbiya (21:30) says the heavens and the earth "were a joined entity, and We separated them."`,
					Verse: &domain.Verse{
						Arabic:      "أَوَلَمْ يَرَ الَّذِينَ كَفَرُوا أَنَّ السَّمَاوَاتِ وَالْأَرْضَ كَانَتَا رَتْقًا فَفَتَقْنَاهُمَا",
						Translation: "Have those who disbelieved not considered that the heavens and the earth were a joined entity, and We separated them",
						Reference:   "Al-Anbiya 21:30",
					},
					Points: 10,
				},
				{
					ID:            "2",
					Prompt:        "What does the Quran say about the heaven Allah constructed?",
					Options:       []string{"It is fixed in size", "It is being expanded", "It is shrinking", "It has no structure"},
					CorrectAnswer: 1,
					Explanation:   `Surah Adh-Dhariyat (51:47): "and indeed, We are [its] expander."`,
					Verse: &domain.Verse{
						Arabic:      "وَالسَّمَاءَ بَنَيْنَاهَا بِأَيْدٍ وَإِنَّا لَمُوسِعُونَ",
						Translation: "And the heaven We constructed with strength, and indeed, We are [its] expander",
						Reference:   "Adh-Dhariyat 51:47",
					},
					Points: 10,
				},
				{
					ID:            "3",
					Prompt:        "What lies between the two seas that meet side by side?",
					Options:       []string{"A bridge", "A barrier neither transgresses", "An island", "Nothing at all"},
					CorrectAnswer: 1,
					Explanation:   `Surah Ar-Rahman (55:19-20) describes a barrier between the two seas "so neither of them transgresses."`,
					Verse: &domain.Verse{
						Arabic:      "مَرَجَ الْبَحْرَيْنِ يَلْتَقِيَانِ بَيْنَهُمَا بَرْزَخٌ لَّا يَبْغِيَانِ",
						Translation: "He released the two seas, meeting side by side; between them is a barrier so neither of them transgresses",
						Reference:   "Ar-Rahman 55:19-20",
					},
					Points: 10,
				},
			},
		},
		"history": {
			Title:       "Stories of the Prophets",
			Description: "Revisit the history of the prophets as told in the Quran",
			Category:    "History & Quran",
			Questions: []domain.Question{
				{
					ID:            "1",
					Prompt:        "Which prophet was commanded to build the ark?",
					Options:       []string{"Ibrahim", "Nuh", "Musa", "Yusuf"},
					CorrectAnswer: 1,
					Explanation:   `Allah commanded Nuh in Surah Hud (11:37): "And construct the ship under Our observation and Our inspiration."`,
					Verse: &domain.Verse{
						Arabic:      "وَاصْنَعِ الْفُلْكَ بِأَعْيُنِنَا وَوَحْيِنَا",
						Translation: "And construct the ship under Our observation and Our inspiration",
						Reference:   "Hud 11:37",
					},
					Points: 10,
				},
				{
					ID:            "2",
					Prompt:        "Who raised the foundations of the Kaaba together with Ismail?",
					Options:       []string{"Nuh", "Ibrahim", "Dawud", "Sulayman"},
					CorrectAnswer: 1,
					Explanation:   `Surah Al-Baqarah (2:127) recounts Ibrahim and Ismail raising the foundations of the House.`,
					Verse: &domain.Verse{
						Arabic:      "وَإِذْ يَرْفَعُ إِبْرَاهِيمُ الْقَوَاعِدَ مِنَ الْبَيْتِ وَإِسْمَاعِيلُ",
						Translation: "And when Abraham was raising the foundations of the House and with him Ishmael",
						Reference:   "Al-Baqarah 2:127",
					},
					Points: 10,
				},
				{
					ID:            "3",
					Prompt:        "Whose body does the Quran say was preserved as a sign for later generations?",
					Options:       []string{"Pharaoh's", "Qarun's", "Haman's", "Namrud's"},
					CorrectAnswer: 0,
					Explanation:   `Surah Yunus (10:92) addresses Pharaoh: "So today We will save you in body that you may be a sign."`,
					Verse: &domain.Verse{
						Arabic:      "فَالْيَوْمَ نُنَجِّيكَ بِبَدَنِكَ لِتَكُونَ لِمَنْ خَلْفَكَ آيَةً",
						Translation: "So today We will save you in body that you may be to those who succeed you a sign",
						Reference:   "Yunus 10:92",
					},
					Points: 10,
				},
			},
		},
		"morality": {
			Title:       "Character in the Quran",
			Description: "Learn the Quranic guidance on conduct and character",
			Category:    "Ethics & Quran",
			Questions: []domain.Question{
				{
					ID:            "1",
					Prompt:        "How should one speak to parents who reach old age?",
					Options:       []string{"Not even say 'uff' to them", "Speak only when necessary", "Leave them to others", "Argue to correct them"},
					CorrectAnswer: 0,
					Explanation:   `Surah Al-Isra (17:23): "say not to them so much as uff, and do not repel them."`,
					Verse: &domain.Verse{
						Arabic:      "فَلَا تَقُل لَّهُمَا أُفٍّ وَلَا تَنْهَرْهُمَا",
						Translation: "Say not to them so much as uff, and do not repel them",
						Reference:   "Al-Isra 17:23",
					},
					Points: 10,
				},
				{
					ID:            "2",
					Prompt:        "For whom must a believer stand firm in justice?",
					Options:       []string{"Only for friends", "Even against themselves", "Only when convenient", "Only for relatives"},
					CorrectAnswer: 1,
					Explanation:   `Surah An-Nisa (4:135) commands justice "even if it be against yourselves."`,
					Verse: &domain.Verse{
						Arabic:      "كُونُوا قَوَّامِينَ بِالْقِسْطِ شُهَدَاءَ لِلَّهِ وَلَوْ عَلَىٰ أَنفُسِكُمْ",
						Translation: "Be persistently standing firm in justice, witnesses for Allah, even if it be against yourselves",
						Reference:   "An-Nisa 4:135",
					},
					Points: 10,
				},
				{
					ID:            "3",
					Prompt:        "How does the Quran teach us to respond to evil?",
					Options:       []string{"Ignore it", "Repel it with what is better", "Return it in kind", "Withdraw from people"},
					CorrectAnswer: 1,
					Explanation:   `Surah Fussilat (41:34): "Repel evil by that deed which is better."`,
					Verse: &domain.Verse{
						Arabic:      "ادْفَعْ بِالَّتِي هِيَ أَحْسَنُ",
						Translation: "Repel evil by that deed which is better",
						Reference:   "Fussilat 41:34",
					},
					Points: 10,
				},
			},
		},
		"worship": {
			Title:       "Worship and Devotion",
			Description: "Understand the place of worship in a believer's life",
			Category:    "Worship & Quran",
			Questions: []domain.Question{
				{
					ID:            "1",
					Prompt:        "For what purpose were jinn and mankind created?",
					Options:       []string{"To build cities", "To gather wealth", "To worship Allah", "To rule the earth"},
					CorrectAnswer: 2,
					Explanation:   `Surah Adh-Dhariyat (51:56): "And I did not create the jinn and mankind except to worship Me."`,
					Verse: &domain.Verse{
						Arabic:      "وَمَا خَلَقْتُ الْجِنَّ وَالْإِنسَ إِلَّا لِيَعْبُدُونِ",
						Translation: "And I did not create the jinn and mankind except to worship Me",
						Reference:   "Adh-Dhariyat 51:56",
					},
					Points: 10,
				},
				{
					ID:            "2",
					Prompt:        "Why was fasting prescribed, according to Surah Al-Baqarah?",
					Options:       []string{"So that you may become righteous", "To save food", "To improve health only", "To mark the new year"},
					CorrectAnswer: 0,
					Explanation:   `Surah Al-Baqarah (2:183) prescribes fasting "that you may become righteous."`,
					Verse: &domain.Verse{
						Arabic:      "كُتِبَ عَلَيْكُمُ الصِّيَامُ كَمَا كُتِبَ عَلَى الَّذِينَ مِن قَبْلِكُمْ لَعَلَّكُمْ تَتَّقُونَ",
						Translation: "Decreed upon you is fasting as it was decreed upon those before you that you may become righteous",
						Reference:   "Al-Baqarah 2:183",
					},
					Points: 10,
				},
				{
					ID:            "3",
					Prompt:        "What does the Quran say prayer restrains a person from?",
					Options:       []string{"Travel", "Immorality and wrongdoing", "Trade", "Sleep"},
					CorrectAnswer: 1,
					Explanation:   `Surah Al-Ankabut (29:45): "Indeed, prayer prohibits immorality and wrongdoing."`,
					Verse: &domain.Verse{
						Arabic:      "إِنَّ الصَّلَاةَ تَنْهَىٰ عَنِ الْفَحْشَاءِ وَالْمُنكَرِ",
						Translation: "Indeed, prayer prohibits immorality and wrongdoing",
						Reference:   "Al-Ankabut 29:45",
					},
					Points: 10,
				},
			},
		},
	}
}
