package chain

import "github.com/tmc/langchaingo/prompts"

var classifierPrompt = prompts.NewPromptTemplate(`Tu tarea es clasificar la pregunta del usuario para determinar si requiere
información de noticias recientes o conocimientos generales.

Clasifica la pregunta en una de estas categorías:
1. NOTICIAS: Si la pregunta solicita información sobre eventos actuales, noticias recientes,
   o temas que podrían estar cubiertos en portales de noticias.
2. GENERAL: Si la pregunta es sobre conocimientos generales, conceptos, historia, ciencia,
   o temas que no necesitan información de noticias actualizadas.

Responde SOLO con la palabra "NOTICIAS" o "GENERAL".

Pregunta: {{.question}}
`, []string{"question"})

var newsPrompt = prompts.NewPromptTemplate(`Eres un asistente especializado en noticias actuales.

Responde a la pregunta del usuario basándote en la información de noticias proporcionada.
Si la información en el contexto no es suficiente para responder completamente,
indícalo y proporciona la mejor respuesta posible con lo que tienes.

Contexto de noticias:
{{.context}}

Pregunta del usuario: {{.question}}

Respuesta:
`, []string{"context", "question"})

var generalPrompt = prompts.NewPromptTemplate(`Eres un asistente virtual útil y conversacional.

Responde a la pregunta del usuario utilizando tu conocimiento general.
Sé claro, informativo y amigable en tu respuesta.

Pregunta del usuario: {{.question}}

Respuesta:
`, []string{"question"})
