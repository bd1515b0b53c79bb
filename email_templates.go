package drive

import (
	"strings"

	"github.com/flosch/pongo2/v6"
)

// zeroWidthSpace breaks up the host label so mail clients do not turn it
// into a link; a linkified host next to the sign in button is a phishing
// vector.
const zeroWidthSpace = "​"

var magicLinkHTMLTemplate = pongo2.Must(pongo2.FromString(`<body style="background: #f9f9f9;">
  <table width="100%" border="0" cellspacing="20" cellpadding="0"
    style="background: #fff; max-width: 600px; margin: auto; border-radius: 10px;">
    <tr>
      <td align="center"
        style="padding: 10px 0px; font-size: 22px; font-family: Helvetica, Arial, sans-serif; color: #444;">
        Sign in to <strong>{{ host }}</strong>
      </td>
    </tr>
    <tr>
      <td align="center" style="padding: 20px 0;">
        <table border="0" cellspacing="0" cellpadding="0">
          <tr>
            <td align="center" style="border-radius: 5px;" bgcolor="#346df1">
              <a href="{{ url }}" target="_blank"
                style="font-size: 18px; font-family: Helvetica, Arial, sans-serif; color: #fff; text-decoration: none; border-radius: 5px; padding: 10px 20px; border: 1px solid #346df1; display: inline-block; font-weight: bold;">
                Sign in
              </a>
            </td>
          </tr>
        </table>
      </td>
    </tr>
    <tr>
      <td align="center"
        style="padding: 0px 0px 10px 0px; font-size: 16px; line-height: 22px; font-family: Helvetica, Arial, sans-serif; color: #444;">
        If you did not request this email you can safely ignore it.
      </td>
    </tr>
  </table>
</body>`))

var magicLinkTextTemplate = pongo2.Must(pongo2.FromString(
	`Sign in to {{ host }}
{{ url|safe }}

If you did not request this email you can safely ignore it.
`))

// SanitizeEmailHost inserts a zero width space after every dot so the
// host renders verbatim but never auto-linkifies.
func SanitizeEmailHost(host string) string {
	return strings.ReplaceAll(host, ".", "."+zeroWidthSpace)
}

// renderMagicLinkEmail renders the HTML and plain text bodies for a sign
// in email referencing the one time URL and the destination host.
func renderMagicLinkEmail(signInURL, host string) (html string, text string, err error) {
	ctx := pongo2.Context{
		"url":  signInURL,
		"host": SanitizeEmailHost(host),
	}

	html, err = magicLinkHTMLTemplate.Execute(ctx)
	if err != nil {
		return "", "", err
	}

	text, err = magicLinkTextTemplate.Execute(ctx)
	if err != nil {
		return "", "", err
	}

	return html, text, nil
}
