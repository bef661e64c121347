// Package main provides localization for the objtrack CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Output":            "出力先",
		"Tracking":          "トラッキング",
		"Video and Quality": "動画と品質",
		"External Tools":    "外部ツール",
		"Debug":             "デバッグ",
		"Logging":           "ログ",

		// Root command
		"Track an object through a video and draw its position": "動画内の物体を追跡し、その位置を描画",
		"objtrack follows one object from an initial bounding box through every frame and writes a copy of the video with the tracked box drawn on it.": "objtrackは初期バウンディングボックスから1つの物体を全フレームにわたって追跡し、追跡した枠を描画した動画を書き出します。",

		// Track command
		"Track an object and write an annotated video": "物体を追跡し、注釈付き動画を書き出す",
		"Decode INPUT, follow the object from the initial box with the tracker process, and write every confidently tracked frame with the box drawn on it.": "INPUTをデコードし、トラッカープロセスで初期ボックスから物体を追跡して、信頼度の高いフレームを枠付きで書き出します。",
		"INPUT": "入力ファイル",

		// Probe command
		"Show video track information without tracking": "追跡せずに動画トラックの情報を表示",
		"probe needs exactly one input file":            "probeには入力ファイルを1つだけ指定してください",
		"File:":                                         "ファイル:",
		"Codec:":                                        "コーデック:",
		"Encoded size:":                                 "符号化サイズ:",
		"Native size:":                                  "表示サイズ:",
		"Frame rate:":                                   "フレームレート:",
		"Duration:":                                     "長さ:",
		"Orientation:":                                  "向き:",
		"Estimated frames:":                             "推定フレーム数:",
		"unsupported angle %.1f":                        "未対応の角度 %.1f",
		"Cannot probe %s: %v":                           "%s を解析できません: %v",

		// Flags
		"YAML configuration file":                                     "YAML設定ファイル",
		"Output video file path (required)":                           "出力動画ファイルパス（必須）",
		"Output container (mp4 or mov)":                               "出力コンテナ（mp4またはmov）",
		"Initial box as x,y,w,h in normalized coordinates":            "初期ボックス（正規化座標のx,y,w,h）",
		"Box y-axis origin (top-left or bottom-left)":                 "ボックスのY軸原点（top-leftまたはbottom-left）",
		"Confidence below which tracking stops":                       "追跡を停止する信頼度の下限",
		"Tracker command line":                                        "トラッカーのコマンドライン",
		"Tracking level (fast or accurate)":                           "トラッキングレベル（fastまたはaccurate）",
		"Extra KEY=VALUE environment for the tracker":                 "トラッカーに渡す追加の環境変数（KEY=VALUE）",
		"Overlay color (hex, e.g., #ff0000)":                          "枠の色（16進数、例: #ff0000）",
		"Overlay stroke width in pixels":                              "枠線の太さ（ピクセル）",
		"Output codec (h264, hevc or prores)":                         "出力コーデック（h264、hevcまたはprores）",
		"Output size preset (e.g., 1920x1080, passthrough)":           "出力サイズのプリセット（例: 1920x1080、passthrough）",
		"Quality preset (low, medium or high)":                        "品質プリセット（low、mediumまたはhigh）",
		"Constant rate factor, overrides quality":                     "CRF値（品質プリセットより優先）",
		"Target bitrate (e.g., 8M)":                                   "目標ビットレート（例: 8M）",
		"Output pixel format":                                         "出力ピクセルフォーマット",
		"Path to ffmpeg (falls back to FFMPEG_PATH env, then PATH)":   "ffmpegのパス（未指定時はFFMPEG_PATH環境変数、次にPATH）",
		"Path to ffprobe (falls back to FFPROBE_PATH env, then PATH)": "ffprobeのパス（未指定時はFFPROBE_PATH環境変数、次にPATH）",
		"Decoder threads (0 = automatic)":                             "デコーダのスレッド数（0 = 自動）",
		"Enable debug output":                                         "デバッグ出力を有効化",
		"Directory for debug output":                                  "デバッグ出力ディレクトリ",
		"Width of debug frame thumbnails":                             "デバッグ用サムネイルの幅",
		"Write a Markdown run summary to this file":                   "Markdown形式の実行サマリーを書き出すファイル",
		"Write run metrics in Prometheus text format to this file":    "Prometheusテキスト形式のメトリクスを書き出すファイル",
		"Log level (debug, info, warn, error)":                        "ログレベル（debug, info, warn, error）",
		"Log format (console, text or json)":                          "ログ形式（console、textまたはjson）",
		"Suppress all log output":                                     "すべてのログ出力を抑制",
		"Show a progress bar":                                         "進捗バーを表示",

		// Run messages
		"Tracking %s (%s)...":                              "%s を追跡中 (%s)...",
		"Cannot open %s: %v":                               "%s を開けません: %v",
		"Cannot start tracker: %v":                         "トラッカーを起動できません: %v",
		"Cannot open output %s: %v":                        "出力 %s を開けません: %v",
		"Failed to write summary: %v":                      "サマリーの書き出しに失敗しました: %v",
		"Failed to write metrics: %v":                      "メトリクスの書き出しに失敗しました: %v",
		"Out of memory at frame %d":                        "フレーム %d でメモリが不足しました",
		"Tracking aborted: %v":                             "トラッキングが中断されました: %v",
		"Tracker failed: %v":                               "トラッカーが失敗しました: %v",
		"Tracking ended at %s after %d frames, %d written": "%s で終了しました（%d フレーム処理、%d フレーム書き出し）",
		"Output saved to %s":                               "%s に保存しました",

		// Summary
		"Tracking Summary":               "トラッキング概要",
		"Result":                         "結果",
		"Input":                          "入力",
		"Settings":                       "設定",
		"Item":                           "項目",
		"Value":                          "値",
		"Run ID":                         "実行ID",
		"Terminal State":                 "終了状態",
		"Frames Read":                    "読み込みフレーム数",
		"Frames Written":                 "書き出しフレーム数",
		"Frames Rejected":                "拒否フレーム数",
		"Initial Box":                    "初期ボックス",
		"Final Box":                      "最終ボックス",
		"Confidence (last / min / mean)": "信頼度（最終 / 最小 / 平均）",
		"Elapsed":                        "所要時間",
		"Error":                          "エラー",
		"Path":                           "パス",
		"Codec":                          "コーデック",
		"Frame Rate":                     "フレームレート",
		"Native Size":                    "表示サイズ",
		"Orientation":                    "向き",
		"Estimated Frames":               "推定フレーム数",
		"Container":                      "コンテナ",
		"File Size":                      "ファイルサイズ",
		"Tracking Level":                 "トラッキングレベル",
		"Confidence Threshold":           "信頼度しきい値",
		"Generated at":                   "生成日時",
	})
}
