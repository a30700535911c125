package botcheck

import "regexp"

// Signature pairs one pattern with the reason shown to moderators. The table
// is ordered: the first matching entry wins and no later entries are
// consulted, so specific signatures must stay above the generic fallbacks.
type Signature struct {
	Pattern *regexp.Regexp
	Reason  string
}

var signatures = []Signature{
	// Search engine crawlers
	{regexp.MustCompile(`googlebot`), "Google search crawler (Googlebot)"},
	{regexp.MustCompile(`bingbot`), "Bing search crawler (Bingbot)"},
	{regexp.MustCompile(`duckduckbot`), "DuckDuckGo search crawler (DuckDuckBot)"},
	{regexp.MustCompile(`baiduspider`), "Baidu search crawler (Baiduspider)"},
	{regexp.MustCompile(`yandex(bot|images)`), "Yandex search crawler"},
	{regexp.MustCompile(`applebot`), "Apple search crawler (Applebot)"},
	{regexp.MustCompile(`sogou`), "Sogou search crawler"},

	// Social media link previews
	{regexp.MustCompile(`facebookexternalhit|facebookcatalog`), "Facebook link preview crawler"},
	{regexp.MustCompile(`twitterbot`), "Twitter/X link preview crawler (Twitterbot)"},
	{regexp.MustCompile(`linkedinbot`), "LinkedIn link preview crawler (LinkedInBot)"},
	{regexp.MustCompile(`pinterestbot`), "Pinterest crawler (Pinterestbot)"},
	{regexp.MustCompile(`slackbot|slack-imgproxy`), "Slack link preview crawler (Slackbot)"},
	{regexp.MustCompile(`discordbot`), "Discord link preview crawler (Discordbot)"},
	{regexp.MustCompile(`telegrambot`), "Telegram link preview crawler (TelegramBot)"},
	{regexp.MustCompile(`whatsapp`), "WhatsApp link preview crawler"},

	// AI training / answer-engine crawlers
	{regexp.MustCompile(`gptbot`), "OpenAI training crawler (GPTBot)"},
	{regexp.MustCompile(`chatgpt-user|oai-searchbot`), "OpenAI retrieval agent"},
	{regexp.MustCompile(`claudebot|anthropic-ai`), "Anthropic crawler (ClaudeBot)"},
	{regexp.MustCompile(`ccbot`), "Common Crawl crawler (CCBot)"},
	{regexp.MustCompile(`google-extended`), "Google AI training crawler (Google-Extended)"},
	{regexp.MustCompile(`bytespider`), "ByteDance crawler (Bytespider)"},
	{regexp.MustCompile(`perplexitybot`), "Perplexity crawler (PerplexityBot)"},
	{regexp.MustCompile(`amazonbot`), "Amazon crawler (Amazonbot)"},
	{regexp.MustCompile(`meta-externalagent`), "Meta AI crawler (Meta-ExternalAgent)"},

	// Monitoring / uptime services
	{regexp.MustCompile(`uptimerobot`), "UptimeRobot monitoring service"},
	{regexp.MustCompile(`pingdom`), "Pingdom monitoring service"},
	{regexp.MustCompile(`statuscake`), "StatusCake monitoring service"},
	{regexp.MustCompile(`site24x7`), "Site24x7 monitoring service"},
	{regexp.MustCompile(`betteruptime|better uptime`), "Better Uptime monitoring service"},

	// Scripting library signatures
	{regexp.MustCompile(`curl/`), "curl HTTP client"},
	{regexp.MustCompile(`wget/`), "wget HTTP client"},
	{regexp.MustCompile(`python-requests|python-urllib|aiohttp`), "Python HTTP library"},
	{regexp.MustCompile(`go-http-client`), "Go HTTP client"},
	{regexp.MustCompile(`okhttp`), "OkHttp client library"},
	{regexp.MustCompile(`^java/|\bjava/`), "Java HTTP client"},
	{regexp.MustCompile(`libwww-perl`), "Perl HTTP library (libwww-perl)"},
	{regexp.MustCompile(`scrapy`), "Scrapy scraping framework"},
	{regexp.MustCompile(`axios/`), "axios HTTP client"},
	{regexp.MustCompile(`node-fetch`), "node-fetch HTTP client"},
	{regexp.MustCompile(`httpclient`), "generic HTTP client library"},
	{regexp.MustCompile(`ruby\b`), "Ruby HTTP client"},
	{regexp.MustCompile(`php/|guzzlehttp`), "PHP HTTP client"},

	// Generic keyword fallbacks, last so specific reasons win above
	{regexp.MustCompile(`headless`), "headless browser signature"},
	{regexp.MustCompile(`bot\b`), "generic bot keyword"},
	{regexp.MustCompile(`crawler`), "generic crawler keyword"},
	{regexp.MustCompile(`spider`), "generic spider keyword"},
	{regexp.MustCompile(`scraper`), "generic scraper keyword"},
}
