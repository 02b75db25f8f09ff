package extractor

// analysisPrompt embeds the transcript verbatim at the single %s.
const analysisPrompt = `
You are an expert mental health AI assistant. Given the following transcript, analyze it and return a JSON object with the following structure:

{
  "topic": "...", // a short, descriptive topic for this session (e.g., 'Anxiety about friendships', 'Work stress', etc.)
  "transcript_summary": { "summary": "...", "key_points": [...] },
  "emotional_analysis": { "primary_emotions": [...], "tone": "...", "intensity_score": ..., "mood_keywords": [...] },
  "cognitive_patterns": { "thinking_distortions": [...], "self_talk_patterns": [...] },
  "triggers_identified": [ { "type": "...", "description": "..." }, ... ],
  "user_intent": { "expressed_goals": [...], "support_requested": [...] },
  "recommendations": { "exercises": [ { "type": "...", "name": "...", "duration_sec": ... }, ... ], "journal_prompt": "..." },
  "insight_tags": [...],
  "follow_up_suggestions": [...]
}

Transcript:
"""%s"""
Return only the JSON object, no explanation.
`
