package domain

// GameType agrupa los juegos por la mecánica que decide su bonus.
type GameType string

const (
	GameTypeQuiz     GameType = "quiz"
	GameTypeMatching GameType = "matching"
	GameTypeBalance  GameType = "balance"
)

// Umbrales de bonus por tipo de juego. El bonus es una constante fija:
// rendir muy por encima del umbral no puntúa más.
const (
	BonusPoints = 10

	// matching: la partida es eficiente con este número de movimientos o menos
	MatchingMoveThreshold = 16

	// balance: altura mínima de la torre para considerar la partida lograda
	BalanceStackThreshold = 8
)

// GameConfig describe un juego del catálogo.
type GameConfig struct {
	ID         string
	Type       GameType
	BasePoints int
}

// Catalog es el catálogo de juegos con su valor en puntos.
type Catalog map[string]GameConfig

// DefaultCatalog devuelve los juegos disponibles en la plataforma.
func DefaultCatalog() Catalog {
	return Catalog{
		"daily-trivia":   {ID: "daily-trivia", Type: GameTypeQuiz, BasePoints: 20},
		"memory-cards":   {ID: "memory-cards", Type: GameTypeMatching, BasePoints: 15},
		"balance-blocks": {ID: "balance-blocks", Type: GameTypeBalance, BasePoints: 15},
	}
}

// CompletionInput agrupa las métricas que llegan con la petición de cierre.
// Cada tipo de juego usa las suyas; el resto se ignora.
type CompletionInput struct {
	Score          int                    `json:"score"`
	Moves          *int                   `json:"moves,omitempty"`
	CorrectAnswers *int                   `json:"correctAnswers,omitempty"`
	TotalQuestions *int                   `json:"totalQuestions,omitempty"`
	StackHeight    *int                   `json:"stackHeight,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Award calcula los puntos de una partida: los puntos base del juego más un
// bonus fijo cuando el rendimiento cruza el umbral de su tipo.
func Award(cfg GameConfig, in CompletionInput) int {
	points := cfg.BasePoints
	if earnedBonus(cfg.Type, in) {
		points += BonusPoints
	}
	return points
}

func earnedBonus(t GameType, in CompletionInput) bool {
	switch t {
	case GameTypeQuiz:
		// bonus solo con pleno de aciertos
		return in.CorrectAnswers != nil && in.TotalQuestions != nil &&
			*in.TotalQuestions > 0 && *in.CorrectAnswers == *in.TotalQuestions
	case GameTypeMatching:
		return in.Moves != nil && *in.Moves <= MatchingMoveThreshold
	case GameTypeBalance:
		return in.StackHeight != nil && *in.StackHeight >= BalanceStackThreshold
	}
	return false
}
