package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// TutorialMarkdown explains how to use the assistant
const TutorialMarkdown = `# 📖 Cara Penggunaan

## 1️⃣ Isi Profile
- Tekan **e** untuk edit data
- Masukkan nama, nomor HP, dan alamat
- Tekan **enter** untuk simpan

## 2️⃣ Aktifkan Auto-Fill
- Tekan **a** untuk toggle *Auto-Fill Mode*
- Atur kecepatan fill di tab Pengaturan

## 3️⃣ Gunakan di TikTok Shop
- Jalankan ` + "`shopassist serve`" + ` lalu buka TikTok Shop
- Saat checkout, data akan terisi otomatis
- Klik tombol **Bayar** untuk menyelesaikan

> ⚠️ Catatan:
> - Aplikasi hanya mengisi form
> - Anda tetap perlu konfirmasi manual
> - Data disimpan lokal di perangkat

Selamat berbelanja! 🛍️
`

// Tutorial styles understood by RenderTutorial
const (
	TutorialDark  = "dark"
	TutorialLight = "light"
	TutorialPlain = "notty"
)

// RenderTutorial renders the tutorial for a terminal of the given width.
// Without a usable renderer the markdown is returned as-is.
func RenderTutorial(width int, style string) string {
	if width <= 0 {
		width = 80
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return TutorialMarkdown
	}
	out, err := renderer.Render(TutorialMarkdown)
	if err != nil {
		return TutorialMarkdown
	}
	return strings.TrimRight(out, "\n")
}
