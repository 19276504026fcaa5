package app

import (
	"sort"
	"strings"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はレシピログのスナップショットワーカーとして起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// commands はサブコマンド名と説明の対応。
var commands = map[Command]string{
	CommandServe:       "APIサーバーを起動する（デフォルト）",
	CommandWorker:      "レシピログの定期スナップショットを実行する",
	CommandMigrate:     "未適用のデータベースマイグレーションを適用する",
	CommandHealthcheck: "稼働中サーバーの /health を確認する",
}

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	cmd := Command(args[0])
	if _, ok := commands[cmd]; !ok {
		return CommandServe
	}
	return cmd
}

// Usage はサブコマンドの一覧を名前順で返す。
func Usage() string {
	names := make([]string, 0, len(commands))
	for cmd := range commands {
		names = append(names, string(cmd))
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("usage: recipebook [command]\n\ncommands:\n")
	for _, name := range names {
		b.WriteString("  " + name + strings.Repeat(" ", 13-len(name)) + commands[Command(name)] + "\n")
	}
	return b.String()
}
