package schedule

import (
	"fmt"
	"time"
)

// PromptSet is the localized text used to talk to the agent and to read
// its reply back.
type PromptSet struct {
	System        string
	UserTemplate  string // args: current time, timezone, user text
	TodayLabel    string
	TomorrowLabel string
}

// Prompts by locale. The system prompts ask for the phrasings the
// Extractor understands.
var Prompts = map[string]PromptSet{
	"zh": {
		System: `你是一个日程助理。用户的描述可能不完整，请根据上下文推断最合适的时间。
最多给出 3 个建议，每个建议单独一行，格式必须为：
建议创建：<今天|明天|后天><上午|下午|晚上>?<小时>点 <标题>
或者：
1. <今天|明天|后天> HH:MM-HH:MM <标题>
不要输出其他格式的时间。`,
		UserTemplate:  "当前时间：%s（%s）\n用户输入：%s",
		TodayLabel:    "今天",
		TomorrowLabel: "明天",
	},
	"en": {
		System: `You are a scheduling assistant. The user's request may be incomplete; infer the most suitable time.
Give at most 3 suggestions, one per line, using exactly one of these forms:
suggest creating: <today|tomorrow> <hour>am|pm <title>
1. <today|tomorrow> HH:MM-HH:MM <title>
Do not write times in any other form.`,
		UserTemplate:  "Current time: %s (%s)\nUser input: %s",
		TodayLabel:    "today",
		TomorrowLabel: "tomorrow",
	},
}

// PromptsFor returns the prompt set for locale, falling back to zh.
func PromptsFor(locale string) PromptSet {
	if p, ok := Prompts[locale]; ok {
		return p
	}
	return Prompts["zh"]
}

// UserPrompt renders the user message sent to the agent.
func (p PromptSet) UserPrompt(text string, now time.Time) string {
	return fmt.Sprintf(p.UserTemplate, now.Format("2006-01-02 15:04 Monday"), now.Location(), text)
}
