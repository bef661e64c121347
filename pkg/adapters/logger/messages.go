package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Pipeline
		"Tracking started":                                     "トラッキングを開始します",
		"Frame %d / %d: confidence %.3f":                       "フレーム %d / %d: 信頼度 %.3f",
		"End of video":                                         "動画の終端に達しました",
		"Tracking failed":                                      "トラッキングに失敗しました",
		"Tracking not confident enough":                        "トラッキングの信頼度が不足しています",
		"Interrupted, shutting down...":                        "中断されました。シャットダウン中...",
		"Decoding stopped early: %v":                           "デコードが途中で停止しました: %v",
		"Failed to annotate frame %d: %v":                      "フレーム %d の描画に失敗しました: %v",
		"Failed to finalize output: %v":                        "出力の確定に失敗しました: %v",
		"Unsupported rotation %.1f degrees, assuming identity": "未対応の回転角 %.1f 度のため回転なしとみなします",

		// Sink
		"Encoder rejected frame at %.3fs: %v": "エンコーダが %.3f 秒のフレームを拒否しました: %v",
		"Finalized %s with %d frames":         "%s を %d フレームで確定しました",

		// Debug output
		"Failed to save debug frame %d: %v": "デバッグフレーム %d の保存に失敗しました: %v",
		"Failed to save observation %d: %v": "観測値 %d の保存に失敗しました: %v",
		"Failed to save run metadata: %v":   "実行メタデータの保存に失敗しました: %v",
	})
}
