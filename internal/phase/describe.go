package phase

const explorationText = `【現在のフェーズ：探索フェーズ】
このフェーズでは、調査の目的と背景に照らして、まだ扱っていないテーマを幅広くカバーします。

1. 調査目的に必要で、まだ一度も触れていないテーマを優先する
2. テーマ同士の優先度を尋ねるメタ質問で、回答者が重視する領域を確かめる
3. 各テーマについて回答者の基本的な立場をつかむ

■ 大局観の維持
- 直近の回答に引きずられず、調査全体のカバレッジを意識する
- 「この目的に対して、あと何を聞くべきか」を俯瞰して考える
- テーマの幅を広げることに集中する`

const deepDiveText = `【現在のフェーズ：深掘りフェーズ】
このフェーズでは、探索で見えてきたテーマについて、より詳細な意見を集めます。

■ 深掘りの方向性
1. 「このテーマで、こういう場合はどうか」という条件分岐を探る
2. 回答の背後にある判断基準や前提条件を明らかにする
3. 意見が分かれそうなポイントの境界条件を確かめる

■ 新規情報の獲得
- すでに聞いたことを繰り返さない
- 「この質問で新しい情報が得られるか」を常に確認する
- 一般論ではなく、具体的な場面での判断を引き出す`

const reframingText = `【現在のフェーズ：視点変換フェーズ】
このフェーズでは、すでに触れたテーマを別の角度から問い直し、多角的なデータを集めます。

■ 視点変換のアプローチ
1. 主語・スコープを変える（全体 ↔ 個人、組織 ↔ 個人、自分 ↔ 他者 ↔ 社会）
2. 時間軸を変える（過去 → 現在 → 未来、短期 ↔ 長期）
3. 条件・状況を変える（理想 ↔ 現実 ↔ 制約下、平常時 ↔ 緊急時）
4. 立場・役割を変える（当事者 ↔ 傍観者、提供者 ↔ 受益者）

■ 概念の分離
- 事実認識と理想像を分けて問う
- 原則と程度を分けて問う
- 目的と手段を分けて問う
- 問題・課題・解決策を区別する

■ このフェーズの価値
- 同じテーマでも角度を変えると、異なる側面への態度が見える
- 多角的な情報で、立体的な調査結果が得られる`

// Describe returns the prompt block that steers question generation for p.
// Unknown phases get the deep-dive text.
func Describe(p Phase) string {
	switch p {
	case Exploration:
		return explorationText
	case Reframing:
		return reframingText
	default:
		return deepDiveText
	}
}
