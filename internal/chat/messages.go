package chat

// Fixed texts shown in the chat window.
const (
	ThinkingText       = "Thinking...🤔"
	GeneratingText     = "Generating your personalized routine...✨"
	EmptySelectionText = "Please select at least one product to generate a routine."
	InvalidReplyText   = "Sorry, I didn't get a valid response from the AI. Please try again."
	FailureText        = "Sorry, something went wrong. Please try again later."
	RateLimitedText    = "You're sending messages too quickly. Please wait a moment and try again."
)

// SystemPrompt seeds every conversation.
const SystemPrompt = `You are a friendly and helpful assistant who's an expert on L'Oréal products.
You help people find the best skincare and haircare routines based on their needs.
Your responses should be concise, informative, and include current information about L'Oréal products or routines using agentic web search with reasoning.
If relevant, include links or citations to sources you find.
You always refer to L'Oréal's official website for product details and avoid making up information.
If you don't know the answer, you politely say you don't know and ask for more details about their skincare or haircare needs.
Politely refuse to answer questions unrelated to L'Oréal products, routines, recommendations, beauty-related topics, makeup, or skincare advice.`

// Greetings are shown, one picked at random, when a session starts.
var Greetings = []string{
	"👋 Welcome! Ask me about hair care products or your future skincare routine.",
	"✨ Hi there! Curious about L'Oréal products or routines? Just ask!",
	"😊 Hello! I'm here to help with all your L'Oréal beauty questions.",
}

const (
	routinePreamble = "Here are the products I've selected:\n"
	routineRequest  = "\nPlease create a personalized beauty routine using these products."
)
