package survey

import (
	"fmt"
	"strings"

	"github.com/baisoku/sonar/internal/phase"
)

const questionSystemPrompt = `あなたは熟練したアンケート設計者です。回答者の本音や判断基準を引き出すため、目的と文脈に沿った質問を作成します。

ルール:
- 1つの質問では1つの論点だけを扱う
- 誘導的な表現や専門用語の多用を避ける
- これまでの質問と重複しない
- 選択式 (radio, checkbox, dropdown) の選択肢は2〜6個にする
- 「その他（自由記述）」は自動で追加されるため選択肢に含めない
- scale の場合は scale_config に min, max, minLabel, maxLabel を入れる

出力は次のJSONのみとし、説明文は付けないこと:
{"questions":[{"statement":"質問文","detail":"補足説明","options":["選択肢1","選択肢2"],"question_type":"radio","scale_config":null}]}

question_type は radio, checkbox, dropdown, text, textarea, scale のいずれか。`

const analysisSystemPrompt = `あなたは調査アナリストです。与えられた5問分の質問と回答を読み、回答者の傾向、価値観、矛盾や迷いが見える点を簡潔にまとめてください。
推測と事実を区別し、箇条書きを中心に400字程度で記述してください。`

const reportSystemPrompt = `あなたは調査レポートの執筆者です。アンケートの目的、背景、全ての質問と回答、途中の分析をもとに、回答者の考えを構造化したレポートをMarkdownで作成してください。

構成:
# 概要
# 主な発見
# 回答者の価値観と判断基準
# 矛盾・未解決の論点
# 提言`

// promptContext is everything a prompt may draw on for one session.
type promptContext struct {
	session  *Session
	entries  []Entry
	analyses []Analysis
}

func (pc promptContext) writeBackground(b *strings.Builder) {
	fmt.Fprintf(b, "## 調査の目的\n%s\n\n", pc.session.Purpose)
	if bg := strings.TrimSpace(pc.session.BackgroundText); bg != "" {
		fmt.Fprintf(b, "## 背景情報\n%s\n\n", bg)
	}
}

func (pc promptContext) writeEntries(b *strings.Builder, entries []Entry) {
	for _, e := range entries {
		fmt.Fprintf(b, "Q%d. %s\n", e.Question.Index, e.Question.Statement)
		if e.Question.Detail != "" {
			fmt.Fprintf(b, "   補足: %s\n", e.Question.Detail)
		}
		fmt.Fprintf(b, "   回答: %s\n", e.Rendered)
	}
}

func (pc promptContext) writeAnalyses(b *strings.Builder) {
	if len(pc.analyses) == 0 {
		return
	}
	b.WriteString("## これまでの分析\n")
	for _, a := range pc.analyses {
		fmt.Fprintf(b, "### Q%d〜Q%d\n%s\n\n", a.StartIndex, a.EndIndex, a.Text)
	}
}

func buildQuestionPrompt(pc promptContext, start, count int, p phase.Phase) string {
	var b strings.Builder
	pc.writeBackground(&b)

	if themes := pc.session.ExplorationThemes; len(themes) > 0 {
		b.WriteString("## 探索テーマ\n")
		for _, t := range themes {
			fmt.Fprintf(&b, "- %s\n", t)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## 現在のフェーズ\n%s\n\n", phase.Describe(p))

	if len(pc.entries) > 0 {
		b.WriteString("## これまでの質問と回答\n")
		pc.writeEntries(&b, pc.entries)
		b.WriteString("\n")
	}
	pc.writeAnalyses(&b)

	fmt.Fprintf(&b, "Q%d から始まる次の質問を%d問作成してください。", start, count)
	return b.String()
}

func buildAnalysisPrompt(pc promptContext, start, end int) string {
	var b strings.Builder
	pc.writeBackground(&b)
	fmt.Fprintf(&b, "## 分析対象 (Q%d〜Q%d)\n", start, end)
	pc.writeEntries(&b, pc.entries)
	return b.String()
}

func buildReportPrompt(pc promptContext) string {
	var b strings.Builder
	if title := strings.TrimSpace(pc.session.Title); title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	pc.writeBackground(&b)
	if ins := strings.TrimSpace(pc.session.ReportInstructions); ins != "" {
		fmt.Fprintf(&b, "## レポートへの指示\n%s\n\n", ins)
	}
	b.WriteString("## 質問と回答\n")
	pc.writeEntries(&b, pc.entries)
	b.WriteString("\n")
	pc.writeAnalyses(&b)
	return b.String()
}
