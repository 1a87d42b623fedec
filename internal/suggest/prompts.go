package suggest

import (
	"fmt"
	"strings"

	"github.com/wondermap/wondermap-api/internal/itinerary"
	"github.com/wondermap/wondermap-api/internal/travel"
)

// FallbackSuggestion is saved when generation succeeds with empty text.
const FallbackSuggestion = "（暫時無法產生建議，請稍後再試）"

const (
	unnamedPlace = "未命名地點"
	noDesc       = "無"
)

var openHints = map[itinerary.OpenState]string{
	itinerary.OpenLikely:   "【營業狀態】你安排的時間可能在營業時間內，請正常給建議。",
	itinerary.ClosedLikely: "【營業狀態】你安排的時間可能不在營業時間內，請明確提醒「可能不在營業時間」，並給替代方案（改時間或附近備案）。",
	itinerary.OpenUnknown:  "【營業狀態】查不到確切營業時間，請不要亂猜，改成提醒使用者自行確認營業時間。",
}

// OpenHint is the prompt fragment describing an open state.
func OpenHint(state itinerary.OpenState) string {
	if h, ok := openHints[state]; ok {
		return h
	}
	return openHints[itinerary.OpenUnknown]
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

func timeRange(start, end *itinerary.TimeOfDay, unknown string) string {
	if start == nil || end == nil {
		return unknown
	}
	return start.String() + " - " + end.String()
}

func coordinates(p *itinerary.GeoPoint) string {
	if p == nil {
		return "未知"
	}
	return fmt.Sprintf("(%g, %g)", p.Lat, p.Lng)
}

// StopPrompt builds the card-style suggestion prompt for an assessed stop.
func StopPrompt(a *Assessment) string {
	s := a.Stop
	var b strings.Builder

	b.WriteString("你是一位旅遊行程規劃助理，請用「繁體中文」為下面這個行程點產生一段「很像旅遊 APP 卡片內的建議文字」。\n\n")
	b.WriteString(OpenHint(a.Open))
	b.WriteString("\n【交通】")
	b.WriteString(a.Verdict.Hint)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "【地點】%s\n", orDefault(s.Name, unnamedPlace))
	fmt.Fprintf(&b, "【類型】%s\n", orDefault(s.Category, travel.DefaultCategory))
	fmt.Fprintf(&b, "【時間】%s\n", timeRange(s.StartTime, s.EndTime, "未指定時間"))
	fmt.Fprintf(&b, "【座標】%s\n", coordinates(s.Location))
	fmt.Fprintf(&b, "【使用者描述】%s\n\n", orDefault(s.Description, noDesc))

	b.WriteString("輸出規則：\n")
	b.WriteString("1) 1~2 句即可，不要條列\n")
	b.WriteString("2) 不要太長（約 30-50 字）\n")
	b.WriteString("3) 不要出現「我無法查詢網路」之類字句\n")
	b.WriteString("4) 若可能不在營業時間內，必須出現「可能不在營業時間」的提醒\n")
	b.WriteString("5) 若交通資訊顯示可能會遲到，請提醒提早出發或調整下一站時間")

	return b.String()
}

// VoiceQuestion is a free-form question asked about a spot.
type VoiceQuestion struct {
	Text        string
	SpotName    string
	Description string
	StartTime   *itinerary.TimeOfDay
	EndTime     *itinerary.TimeOfDay
	Location    *itinerary.GeoPoint
}

// VoicePrompt builds the tour-guide prompt for a spoken question.
func VoicePrompt(q VoiceQuestion) string {
	var b strings.Builder

	b.WriteString("你是一位旅遊 APP 內的智慧導遊，請用「繁體中文」回答，內容短而實用（2~5句），不要說你不能上網。\n")
	fmt.Fprintf(&b, "【地點】%s\n", orDefault(q.SpotName, unnamedPlace))
	fmt.Fprintf(&b, "【時間】%s\n", timeRange(q.StartTime, q.EndTime, "未指定"))
	fmt.Fprintf(&b, "【座標】%s\n", coordinates(q.Location))
	fmt.Fprintf(&b, "【使用者描述】%s\n\n", orDefault(q.Description, noDesc))
	fmt.Fprintf(&b, "使用者問題：%s", strings.TrimSpace(q.Text))

	return b.String()
}
