// Package share はSNS共有用のOG/メタページとプレビュー画像を提供する。
//
// クローラー（OGP/Twitterカードのスクレイパー）にはメタタグ入りのHTMLを返し、
// 人間の閲覧者はmeta refreshでアプリ本体へリダイレクトする。
package share

import (
	"fmt"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/hitoshi/doodleprompt/internal/model"
)

const siteName = "Daily Doodle Prompt"

// PageParams はOG/メタページの構成要素。
type PageParams struct {
	Title       string
	Description string
	ImageURL    string
	PageURL     string
	RedirectURL string
}

// metaPage はOG/Twitterメタタグとリダイレクトを持つHTMLドキュメントを構築する。
func metaPage(p PageParams) Node {
	return HTML(
		Attr("lang", "ja"),
		Head(
			Meta(Attr("charset", "utf-8")),
			Meta(Attr("name", "viewport"), Attr("content", "width=device-width, initial-scale=1")),
			TitleEl(Text(p.Title)),
			Meta(Attr("property", "og:type"), Attr("content", "website")),
			Meta(Attr("property", "og:site_name"), Attr("content", siteName)),
			Meta(Attr("property", "og:title"), Attr("content", p.Title)),
			Meta(Attr("property", "og:description"), Attr("content", p.Description)),
			Meta(Attr("property", "og:image"), Attr("content", p.ImageURL)),
			Meta(Attr("property", "og:url"), Attr("content", p.PageURL)),
			Meta(Attr("name", "twitter:card"), Attr("content", "summary_large_image")),
			Meta(Attr("name", "twitter:title"), Attr("content", p.Title)),
			Meta(Attr("name", "twitter:description"), Attr("content", p.Description)),
			Meta(Attr("name", "twitter:image"), Attr("content", p.ImageURL)),
			Meta(Attr("http-equiv", "refresh"), Attr("content", "0;url="+p.RedirectURL)),
		),
		Body(
			P(
				Text("リダイレクトしています… "),
				A(Href(p.RedirectURL), Text("開かない場合はこちら")),
			),
		),
	)
}

// Renderer は共有ページのHTML生成を提供する。
type Renderer struct {
	baseURL string
}

// NewRenderer はRendererを生成する。baseURLは公開URLの基点。
func NewRenderer(baseURL string) *Renderer {
	return &Renderer{baseURL: baseURL}
}

// DoodlePage は作品の共有ページを構築する。
func (r *Renderer) DoodlePage(doodle *model.Doodle, authorName string) Node {
	title := doodle.Title
	if title == "" {
		title = "無題のらくがき"
	}
	if authorName == "" {
		authorName = "名無しの絵描き"
	}
	return metaPage(PageParams{
		Title:       fmt.Sprintf("%s - %s", title, siteName),
		Description: fmt.Sprintf("%sさんが%sのお題に挑戦しました", authorName, doodle.PromptDate),
		ImageURL:    fmt.Sprintf("%s/share/image?type=doodle&id=%s", r.baseURL, doodle.ID),
		PageURL:     fmt.Sprintf("%s/share/doodle?id=%s", r.baseURL, doodle.ID),
		RedirectURL: fmt.Sprintf("%s/doodles/%s", r.baseURL, doodle.ID),
	})
}

// PromptPage はお題の共有ページを構築する。
func (r *Renderer) PromptPage(prompt *model.Prompt) Node {
	return metaPage(PageParams{
		Title:       fmt.Sprintf("%sのお題: %s - %s", prompt.Date, prompt.Text, siteName),
		Description: fmt.Sprintf("今日のお題「%s」に挑戦しよう！", prompt.Text),
		ImageURL:    fmt.Sprintf("%s/share/image?type=prompt&date=%s", r.baseURL, prompt.Date),
		PageURL:     fmt.Sprintf("%s/share/prompt?date=%s", r.baseURL, prompt.Date),
		RedirectURL: fmt.Sprintf("%s/?date=%s", r.baseURL, prompt.Date),
	})
}

// UserPage はユーザープロフィールの共有ページを構築する。
func (r *Renderer) UserPage(profile *model.Profile, doodleCount int) Node {
	username := profile.Username
	if username == "" {
		username = "名無しの絵描き"
	}
	return metaPage(PageParams{
		Title:       fmt.Sprintf("%sの作品集 - %s", username, siteName),
		Description: fmt.Sprintf("%sさんの作品%d点を見る", username, doodleCount),
		ImageURL:    fmt.Sprintf("%s/share/image?type=user&username=%s", r.baseURL, profile.Username),
		PageURL:     fmt.Sprintf("%s/share/user?username=%s", r.baseURL, profile.Username),
		RedirectURL: fmt.Sprintf("%s/users/%s", r.baseURL, profile.Username),
	})
}
