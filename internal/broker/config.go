package broker

type Config struct {
	ListenAddr   string
	DataDir      string
	MaxLineBytes int
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:   ":5555",
		DataDir:      "./data",
		MaxLineBytes: 10 << 20,
	}
}
