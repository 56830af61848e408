// Package report turns an extracted KPI record into a client-facing summary.
package report

import (
	"strings"

	"github.com/KaramelBytes/adreport-cli/internal/kpi"
)

// DefaultGoal is used when the caller gives no goal.
const DefaultGoal = "Google広告の目標3件の達成"

// Context is free text the account manager adds to the numbers.
type Context struct {
	Goal   string `json:"goal"`
	Issues string `json:"issues"`
	Tasks  string `json:"tasks"`
}

// WithDefaults fills an empty goal.
func (c Context) WithDefaults() Context {
	if strings.TrimSpace(c.Goal) == "" {
		c.Goal = DefaultGoal
	}
	return c
}

// SystemInstruction frames the model as an ad-ops consultant writing three
// bullet lines.
const SystemInstruction = `あなたはプロの広告運用コンサルタントです。提供された数値データを元に、クライアントへ提出する質の高いレポートサマリーを「・」から始まる3行で作成してください。

【出力の基本方針】
・単に数値を並べるのではなく、それらが何を意味するのか（好調なのか、改善が必要なのか、どのような施策が効いているのか）をプロフェッショナルな表現で記述してください。
・目標、課題、タスクの各項目が提供されている場合は、それらを自然に要約に組み込んでください。
・不要な小数点は省略してください。

【出力形式の絶対ルール】
・必ず「・」で始まる箇条書きで3行出力してください。
・「*」や「**」などのマークダウン装飾、および「1.」「2.」のような番号は一切使用しないでください。

【良い回答（お手本）】
・今月はCV○件（△△○件・××○件）を獲得し、目標達成率○％と大幅に目標を達成しております。
・CVRが○％と向上したことで、CPAも○円まで改善されており、獲得効率が非常に良くなっています。
・クリック率(CTR)も○％と上昇傾向にあるため、現在の広告文を軸にしつつ、今後はキーワードを調整し、予算に応じた獲得数の最大化を目指します。`

// withUnit appends unit unless v is empty or already ends in it. Sheets
// formatted as percentages already carry "%".
func withUnit(v, unit string, same ...string) string {
	if v == "" {
		return ""
	}
	for _, u := range append(same, unit) {
		if strings.HasSuffix(v, u) {
			return v
		}
	}
	return v + unit
}

// BuildPrompt renders the user prompt for one record.
func BuildPrompt(r kpi.Record, c Context) string {
	c = c.WithDefaults()
	var sb strings.Builder
	sb.WriteString("以下の広告配信データを元に、クライアント向けのレポートサマリーを「3行の箇条書き」で作成してください。\n")
	sb.WriteString("不要な小数点は削除してください（例：100.00% → 100%）。\n\n")

	sb.WriteString("【データ】\n")
	sb.WriteString("・目標達成率: " + withUnit(r.Achievement, "％", "%") + "\n")
	sb.WriteString("・当月合計CV: " + r.TotalConversions)
	if r.Breakdown != "" {
		sb.WriteString(" (内訳: " + r.Breakdown + ")")
	}
	sb.WriteString("\n")
	sb.WriteString("・当月CVR: " + withUnit(r.ConversionRate, "％", "%") + "\n")
	sb.WriteString("・当月CPA: " + withUnit(r.CostPerAcquisition, "円") + "\n")
	sb.WriteString("・当月CTR: " + withUnit(r.ClickThroughRate, "％", "%") + "\n")
	sb.WriteString("・目標CV数: " + r.GoalConversions + "\n\n")

	sb.WriteString("【追加コンテキスト】\n")
	sb.WriteString("・目標: " + c.Goal + "\n")
	sb.WriteString("・課題: " + c.Issues + "\n")
	sb.WriteString("・タスク: " + c.Tasks + "\n")
	return sb.String()
}
