package fallback

import "github.com/phrazzld/coach-api/internal/domain"

// catalog holds the user-facing strings of the offline payloads for one
// language.
type catalog struct {
	workoutTitle string // formatted with the 1-based workout number
	workoutNotes string
	meals        [3]string
	ingredients  map[string]string
	planNotes    string
	sleep        []string
	shortSleep   string
	disclaimer   string
	chatReply    string
	suggestions  []string
}

var english = catalog{
	workoutTitle: "Full body session %d",
	workoutNotes: "Keep two or three reps in reserve on every set.",
	meals:        [3]string{"Breakfast", "Lunch", "Dinner"},
	ingredients: map[string]string{
		"oats": "Oats", "milk": "Milk", "banana": "Banana",
		"rice": "Rice", "chicken": "Chicken breast", "beans": "Beans",
		"vegetables": "Vegetables", "potatoes": "Potatoes", "eggs": "Eggs",
		"tofu": "Tofu",
	},
	planNotes: "A balanced standard plan. Adjust portions to your appetite.",
	sleep: []string{
		"Go to bed and wake up at the same time every day.",
		"Avoid caffeine after 2 pm.",
		"Keep your bedroom dark, quiet and cool.",
	},
	shortSleep: "Aim for at least seven hours of sleep per night.",
	disclaimer: "General guidance only, not medical advice.",
	chatReply:  "I can't reach the coaching model right now. Your current plan stays valid; try your question again in a few minutes.",
	suggestions: []string{
		"Show this week's training plan",
		"Show this week's meals",
	},
}

var russian = catalog{
	workoutTitle: "Тренировка на всё тело %d",
	workoutNotes: "Оставляйте в запасе два-три повторения в каждом подходе.",
	meals:        [3]string{"Завтрак", "Обед", "Ужин"},
	ingredients: map[string]string{
		"oats": "Овсянка", "milk": "Молоко", "banana": "Банан",
		"rice": "Рис", "chicken": "Куриная грудка", "beans": "Фасоль",
		"vegetables": "Овощи", "potatoes": "Картофель", "eggs": "Яйца",
		"tofu": "Тофу",
	},
	planNotes: "Сбалансированный базовый план. Корректируйте порции по аппетиту.",
	sleep: []string{
		"Ложитесь и вставайте в одно и то же время каждый день.",
		"Не пейте кофе после 14:00.",
		"Спите в тёмной, тихой и прохладной комнате.",
	},
	shortSleep: "Старайтесь спать не меньше семи часов.",
	disclaimer: "Общие рекомендации, не медицинский совет.",
	chatReply:  "Сейчас тренерская модель недоступна. Текущий план остаётся в силе, повторите вопрос через несколько минут.",
	suggestions: []string{
		"Показать тренировки на неделю",
		"Показать питание на неделю",
	},
}

var spanish = catalog{
	workoutTitle: "Sesión de cuerpo completo %d",
	workoutNotes: "Deja dos o tres repeticiones en reserva en cada serie.",
	meals:        [3]string{"Desayuno", "Almuerzo", "Cena"},
	ingredients: map[string]string{
		"oats": "Avena", "milk": "Leche", "banana": "Plátano",
		"rice": "Arroz", "chicken": "Pechuga de pollo", "beans": "Frijoles",
		"vegetables": "Verduras", "potatoes": "Patatas", "eggs": "Huevos",
		"tofu": "Tofu",
	},
	planNotes: "Un plan equilibrado estándar. Ajusta las porciones a tu apetito.",
	sleep: []string{
		"Acuéstate y levántate a la misma hora todos los días.",
		"Evita la cafeína después de las 14:00.",
		"Mantén tu dormitorio oscuro, silencioso y fresco.",
	},
	shortSleep: "Intenta dormir al menos siete horas cada noche.",
	disclaimer: "Orientación general, no es consejo médico.",
	chatReply:  "Ahora mismo no puedo contactar con el modelo. Tu plan actual sigue siendo válido; vuelve a preguntar en unos minutos.",
	suggestions: []string{
		"Ver el plan de entrenamiento de la semana",
		"Ver las comidas de la semana",
	},
}

var catalogs = map[string]catalog{
	"en": english,
	"ru": russian,
	"es": spanish,
}

func catalogFor(locale string) catalog {
	if c, ok := catalogs[domain.Language(locale)]; ok {
		return c
	}
	return english
}
