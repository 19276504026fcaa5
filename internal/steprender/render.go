// Package steprender はレシピ手順の表示用HTML断片を生成する。
//
// 手順は画像パスの有無だけで2種類の表示形式に分類される。
//   - テキスト手順: <p>{番号}. {説明}</p>
//   - 画像付き手順: <div><p>{番号}. {説明}</p><img .../></div>
//
// 呼び出し側が形式を選ぶことはできず、常にデータから決まる。
package steprender

import (
	"fmt"
	"html"

	"github.com/hitoshi/recipebook/internal/model"
)

// Variant は手順の表示形式を表す。
type Variant int

const (
	// VariantText は画像なしの手順。
	VariantText Variant = iota
	// VariantImage は画像付きの手順。
	VariantImage
)

// String は表示形式の名前を返す。APIレスポンスで使用する。
func (v Variant) String() string {
	switch v {
	case VariantImage:
		return "image"
	default:
		return "text"
	}
}

// Classify は手順の表示形式を判定する。
// 画像パスが空でなければVariantImage、それ以外はVariantText。
func Classify(step model.Step) Variant {
	if step.HasImage() {
		return VariantImage
	}
	return VariantText
}

// TextSanitizer は説明文をHTMLに埋め込む前に無害化するインターフェース。
type TextSanitizer interface {
	Sanitize(text string) string
}

// Fragment は1手順分の描画結果。
type Fragment struct {
	StepNumber int
	Variant    Variant
	HTML       string
}

// Renderer は手順をHTML断片に変換する。副作用を持たない。
type Renderer struct {
	sanitizer TextSanitizer
}

// NewRenderer はRendererを生成する。
// sanitizerがnilの場合、説明文はそのまま埋め込まれる。
func NewRenderer(sanitizer TextSanitizer) *Renderer {
	return &Renderer{sanitizer: sanitizer}
}

// Render は1手順をHTML断片に変換する。
func (r *Renderer) Render(step model.Step) string {
	text := r.paragraph(step)

	switch Classify(step) {
	case VariantImage:
		return "<div>" + text +
			fmt.Sprintf("<img src='%s' alt='Step image' style='width:100%%; border-radius:6px;' />", html.EscapeString(step.ImagePath)) +
			"</div>"
	default:
		return text
	}
}

// RenderAll は手順を入力順のまま描画する。
// 入力はstep_number順に並んでいることを前提とし、並べ替えは行わない。
func (r *Renderer) RenderAll(steps []model.Step) []Fragment {
	fragments := make([]Fragment, len(steps))
	for i, step := range steps {
		fragments[i] = Fragment{
			StepNumber: step.StepNumber,
			Variant:    Classify(step),
			HTML:       r.Render(step),
		}
	}
	return fragments
}

func (r *Renderer) paragraph(step model.Step) string {
	instruction := step.Instruction
	if r.sanitizer != nil {
		instruction = r.sanitizer.Sanitize(instruction)
	}
	return fmt.Sprintf("<p>%d. %s</p>", step.StepNumber, instruction)
}
