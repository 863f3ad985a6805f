package res

const (
	AppName       = "mediadeck"
	DisplayName   = "MediaDeck"
	AppVersion    = "0.1.0"
	AppVersionTag = "v" + AppVersion
	ConfigFile    = "config.toml"
	GithubURL     = "https://github.com/dweymouth/mediadeck"
)
