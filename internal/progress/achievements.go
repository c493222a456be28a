package progress

// achievementRule grants an achievement once its condition holds.
type achievementRule struct {
	code        string
	kind        AchievementType
	title       string
	description string
	earned      func(s standing) bool
}

// standing is what achievement rules look at after each completion.
type standing struct {
	completions   int
	currentStreak int
	level         int
}

var achievementRules = []achievementRule{
	{
		code:        "first_lesson",
		kind:        AchievementLesson,
		title:       "First Steps",
		description: "Completed your first lesson",
		earned:      func(s standing) bool { return s.completions >= 1 },
	},
	{
		code:        "streak_7",
		kind:        AchievementStreak,
		title:       "Week Warrior",
		description: "Completed lessons for 7 days in a row",
		earned:      func(s standing) bool { return s.currentStreak >= 7 },
	},
	{
		code:        "streak_30",
		kind:        AchievementStreak,
		title:       "Consistency King",
		description: "Completed lessons for 30 days in a row",
		earned:      func(s standing) bool { return s.currentStreak >= 30 },
	},
	{
		code:        "level_5",
		kind:        AchievementLevel,
		title:       "Rising Star",
		description: "Reached level 5",
		earned:      func(s standing) bool { return s.level >= 5 },
	},
	{
		code:        "level_10",
		kind:        AchievementLevel,
		title:       "Dedicated Learner",
		description: "Reached level 10",
		earned:      func(s standing) bool { return s.level >= 10 },
	},
	{
		code:        "level_25",
		kind:        AchievementLevel,
		title:       "Level Master",
		description: "Reached level 25",
		earned:      func(s standing) bool { return s.level >= 25 },
	},
}

// badgeURL is where the frontend serves the badge for code.
func badgeURL(code string) string {
	return "/badges/" + code + ".png"
}
