package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandBot はTelegramボットモードで起動することを示す。
	CommandBot Command = "bot"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandReport は利用状況レポートを出力することを示す。
	CommandReport Command = "report"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandBotを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandBot
	}

	switch args[0] {
	case "bot":
		return CommandBot
	case "migrate":
		return CommandMigrate
	case "report":
		return CommandReport
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandBot
	}
}
