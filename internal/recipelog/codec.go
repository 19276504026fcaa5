// Package recipelog はレシピを人が読めるテキスト形式で追記保存し、
// 同じテキストからレシピを復元する。
//
// 1レシピは以下のブロックで表現される。
//
//	(空行)
//	Recipe ID: 1
//	Name: Toast
//	Description: Simple
//	Servings: 1
//	Cook Time: 5 min
//	Created by: alice
//	Ingredients:
//	  • 2 slices bread
//	Steps:
//	  1. Toast bread
//	  2. Butter it
//	Image: img/butter.png
//	----------------------------------------
//
// ブロックは40個のハイフンで終わる。復元時は10個以上のハイフンで始まる行を終端とみなす。
// 終端のない末尾ブロックは復元結果に含めない。
package recipelog

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hitoshi/recipebook/internal/model"
)

const (
	keyRecipeID    = "Recipe ID:"
	keyName        = "Name:"
	keyDescription = "Description:"
	keyServings    = "Servings:"
	keyCookTime    = "Cook Time:"
	keyCreatedBy   = "Created by:"
	keyIngredients = "Ingredients:"
	keySteps       = "Steps:"
	keyImage       = "Image:"

	// legacyImageMarker は旧形式のログで画像行の先頭に付いていた記号。
	legacyImageMarker = "📷"

	bullet = "•"

	blockTerminator   = "----------------------------------------"
	minTerminatorDash = 10
)

// Entry は追記対象の1レシピと作成者名の組。
type Entry struct {
	Recipe    model.Recipe
	CreatedBy string
}

// Record はログから復元した1レシピ。
// ログに存在しないキーに対応するフィールドはゼロ値のまま残る。
type Record struct {
	RecipeID    int64
	Name        string
	Description string
	Servings    int
	CookTimeMin int
	CreatedBy   string
	Ingredients []model.Ingredient
	Steps       []model.Step
}

// ParseError は数値フィールドの変換失敗を表す。Lineは1始まりの行番号。
type ParseError struct {
	Line  int
	Field string
	Err   error
}

// Error はerrorインターフェースを実装する。
func (e *ParseError) Error() string {
	return fmt.Sprintf("recipelog: line %d: invalid %s: %v", e.Line, e.Field, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *ParseError) Unwrap() error {
	return e.Err
}

// lineBreaks は自由記述テキスト中の改行を空白に畳む。
// 改行がそのまま書かれると、ユーザー入力が終端行や見出し行を偽装できてしまう。
var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func oneLine(s string) string {
	return lineBreaks.Replace(s)
}

// Encode はentriesを入力順にブロックとしてwへ書き込む。
func Encode(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)

	for _, e := range entries {
		r := e.Recipe

		fmt.Fprintln(bw)
		fmt.Fprintf(bw, "%s %d\n", keyRecipeID, r.ID)
		fmt.Fprintf(bw, "%s %s\n", keyName, oneLine(r.Name))
		fmt.Fprintf(bw, "%s %s\n", keyDescription, oneLine(r.Description))
		fmt.Fprintf(bw, "%s %d\n", keyServings, r.Servings)
		fmt.Fprintf(bw, "%s %d min\n", keyCookTime, r.CookTimeMin)
		fmt.Fprintf(bw, "%s %s\n", keyCreatedBy, oneLine(e.CreatedBy))

		fmt.Fprintln(bw, keyIngredients)
		for _, ing := range r.Ingredients {
			fmt.Fprintf(bw, "  %s %s %s %s\n",
				bullet,
				strconv.FormatFloat(ing.Quantity, 'f', -1, 64),
				oneLine(ing.Unit),
				oneLine(ing.Name),
			)
		}

		fmt.Fprintln(bw, keySteps)
		for _, s := range r.Steps {
			fmt.Fprintf(bw, "  %d. %s\n", s.StepNumber, oneLine(s.Instruction))
			if s.HasImage() {
				fmt.Fprintf(bw, "%s %s\n", keyImage, oneLine(s.ImagePath))
			}
		}

		fmt.Fprintln(bw, blockTerminator)
	}

	return bw.Flush()
}

// Decode はrの内容全体を読み込み、終端まで揃ったブロックをレシピとして復元する。
// 数値フィールドの変換に失敗した場合は*ParseErrorを返し、途中までの結果は返さない。
func Decode(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	cur := newLineCursor(string(data))
	records := []Record{}

	var open *Record
	for {
		line, ok := cur.advance()
		if !ok {
			break
		}

		if strings.HasPrefix(line, keyRecipeID) {
			id, err := strconv.ParseInt(valueAfterColon(line), 10, 64)
			if err != nil {
				return nil, &ParseError{Line: cur.lineNo(), Field: "recipe id", Err: err}
			}
			open = &Record{
				RecipeID:    id,
				Ingredients: []model.Ingredient{},
				Steps:       []model.Step{},
			}
			continue
		}

		// ブロック外の行は無視する
		if open == nil {
			continue
		}

		switch {
		case strings.HasPrefix(line, keyName):
			open.Name = valueAfterColon(line)
		case strings.HasPrefix(line, keyDescription):
			open.Description = valueAfterColon(line)
		case strings.HasPrefix(line, keyServings):
			n, err := strconv.Atoi(valueAfterColon(line))
			if err != nil {
				return nil, &ParseError{Line: cur.lineNo(), Field: "servings", Err: err}
			}
			open.Servings = n
		case strings.HasPrefix(line, keyCookTime):
			n, err := parseCookTime(line)
			if err != nil {
				return nil, &ParseError{Line: cur.lineNo(), Field: "cook time", Err: err}
			}
			open.CookTimeMin = n
		case strings.HasPrefix(line, keyCreatedBy):
			open.CreatedBy = valueAfterColon(line)
		case strings.HasPrefix(line, keyIngredients):
			ings, err := scanIngredients(cur)
			if err != nil {
				return nil, err
			}
			open.Ingredients = append(open.Ingredients, ings...)
		case strings.HasPrefix(line, keySteps):
			steps, err := scanSteps(cur)
			if err != nil {
				return nil, err
			}
			open.Steps = append(open.Steps, steps...)
		case isTerminator(line):
			records = append(records, *open)
			open = nil
		}
	}

	return records, nil
}

// valueAfterColon は最初のコロン以降を返す。説明文中のコロンは保持される。
func valueAfterColon(line string) string {
	_, v, _ := strings.Cut(line, ":")
	return strings.TrimSpace(v)
}

// parseCookTime は "Cook Time: <n> min" の<n>を取り出す。
func parseCookTime(line string) (int, error) {
	fields := strings.Fields(strings.TrimPrefix(line, keyCookTime))
	if len(fields) == 0 {
		return 0, fmt.Errorf("missing value")
	}
	return strconv.Atoi(fields[0])
}

func isTerminator(line string) bool {
	return strings.HasPrefix(line, blockTerminator[:minTerminatorDash])
}

func isImageLine(line string) bool {
	return strings.HasPrefix(line, keyImage) || strings.HasPrefix(line, legacyImageMarker)
}

// scanIngredients は箇条書き行が続く間だけ材料として読み進める。
// 箇条書きでない最初の行は消費しない。
func scanIngredients(cur *lineCursor) ([]model.Ingredient, error) {
	var out []model.Ingredient
	for {
		line, ok := cur.peek()
		if !ok || !strings.HasPrefix(line, bullet) {
			return out, nil
		}
		cur.advance()

		// 単位が空の場合に "2  bread" となるため、空白1文字で分割する
		parts := strings.Split(strings.TrimSpace(strings.TrimPrefix(line, bullet)), " ")
		qty, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, &ParseError{Line: cur.lineNo(), Field: "ingredient quantity", Err: err}
		}

		ing := model.Ingredient{Quantity: qty}
		if len(parts) > 1 {
			ing.Unit = parts[1]
		}
		if len(parts) > 2 {
			ing.Name = strings.Join(parts[2:], " ")
		}
		out = append(out, ing)
	}
}

// scanSteps は空行またはハイフンで始まる行の直前まで手順として読み進める。
// 手順行の直後に画像行があれば、その手順の画像パスとして一緒に消費する。
func scanSteps(cur *lineCursor) ([]model.Step, error) {
	var out []model.Step
	for {
		line, ok := cur.peek()
		if !ok || line == "" || strings.HasPrefix(line, "-") {
			return out, nil
		}
		cur.advance()

		number, instruction, isStep := splitStepLine(line)
		if !isStep {
			// 手順に続かない画像行などは読み飛ばす
			continue
		}

		n, err := strconv.Atoi(number)
		if err != nil {
			return nil, &ParseError{Line: cur.lineNo(), Field: "step number", Err: err}
		}
		step := model.Step{StepNumber: n, Instruction: instruction}

		if next, ok := cur.peek(); ok && isImageLine(next) {
			cur.advance()
			step.ImagePath = imagePath(next)
		}

		out = append(out, step)
	}
}

// splitStepLine は "<n>. <instruction>" を分解する。
// 説明が空の手順は行末の空白が落ちて "<n>." になるため、それも手順として扱う。
func splitStepLine(line string) (number, instruction string, ok bool) {
	if isImageLine(line) {
		return "", "", false
	}
	if number, instruction, found := strings.Cut(line, ". "); found {
		return number, instruction, true
	}
	if trimmed, found := strings.CutSuffix(line, "."); found && trimmed != "" && !strings.Contains(trimmed, " ") {
		return trimmed, "", true
	}
	return "", "", false
}

func imagePath(line string) string {
	if _, v, found := strings.Cut(line, ": "); found {
		return strings.TrimSpace(v)
	}
	line = strings.TrimPrefix(line, legacyImageMarker)
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), keyImage))
}
